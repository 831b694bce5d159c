package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/server/validator"
	"github.com/oryx-ai/conductor/pkg/api"
)

type RouteHandler struct {
	router    *services.Router
	scopes    *services.ScopeManager
	validator *validator.Validator
}

func NewRouteHandler(router *services.Router, scopes *services.ScopeManager, v *validator.Validator) *RouteHandler {
	return &RouteHandler{router: router, scopes: scopes, validator: v}
}

func (h *RouteHandler) resolveScope(c *gin.Context, scopeID string) (*domain.Scope, bool) {
	if scopeID == "" {
		return nil, true
	}
	scope := h.scopes.Get(scopeID)
	if scope == nil {
		_ = c.Error(domain.NotFoundError(fmt.Sprintf("scope %q not found", scopeID)))
		return nil, false
	}
	return scope, true
}

// Route classifies and dispatches one prompt. Provider exhaustion comes back
// as 200 with success=false; only caller mistakes produce error statuses.
func (h *RouteHandler) Route(c *gin.Context) {
	var req api.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	scope, ok := h.resolveScope(c, req.ScopeID)
	if !ok {
		return
	}

	result := h.router.Route(c.Request.Context(), domain.RouteRequest{
		Prompt:     req.Prompt,
		Scope:      scope,
		MaxRetries: req.MaxRetries,
	})

	c.JSON(http.StatusOK, api.RouteResponseFrom(result))
}

// RouteStream is the SSE variant. A restart event tells the client to drop
// partial output before the next candidate's chunks arrive.
func (h *RouteHandler) RouteStream(c *gin.Context) {
	var req api.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	scope, ok := h.resolveScope(c, req.ScopeID)
	if !ok {
		return
	}

	events := h.router.Stream(c.Request.Context(), domain.RouteRequest{
		Prompt:     req.Prompt,
		Scope:      scope,
		MaxRetries: req.MaxRetries,
	})

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return false
		}

		chunk := api.StreamChunkResponse{
			Chunk:      event.Chunk,
			ProviderID: event.ProviderID,
			Restart:    event.Restart,
		}
		if event.Result != nil {
			resp := api.RouteResponseFrom(event.Result)
			chunk.Result = &resp
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		// The terminal event closes the channel; [DONE] follows then.
		return true
	})
}
