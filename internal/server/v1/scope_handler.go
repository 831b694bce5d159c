package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/server/validator"
	"github.com/oryx-ai/conductor/pkg/api"
)

type ScopeHandler struct {
	scopes    *services.ScopeManager
	validator *validator.Validator
}

func NewScopeHandler(scopes *services.ScopeManager, v *validator.Validator) *ScopeHandler {
	return &ScopeHandler{scopes: scopes, validator: v}
}

func (h *ScopeHandler) Create(c *gin.Context) {
	var req api.CreateScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	scope, err := h.scopes.Create(c.Request.Context(), domain.Scope{
		Name:           req.Name,
		Type:           domain.ScopeType(req.Type),
		Context:        req.Context,
		LLMPreferences: req.LLMPreferences,
		TemplateID:     req.TemplateID,
		Metadata:       req.Metadata,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, scope)
}

func (h *ScopeHandler) List(c *gin.Context) {
	filter := domain.ScopeFilter{
		Type:     domain.ScopeType(c.Query("type")),
		Name:     c.Query("name"),
		Contains: c.Query("contains"),
	}
	c.JSON(http.StatusOK, h.scopes.List(filter))
}

func (h *ScopeHandler) Get(c *gin.Context) {
	id := c.Param("id")
	scope := h.scopes.Get(id)
	if scope == nil {
		_ = c.Error(domain.NotFoundError(fmt.Sprintf("scope %q not found", id)))
		return
	}
	c.JSON(http.StatusOK, scope)
}

func (h *ScopeHandler) Update(c *gin.Context) {
	var req api.UpdateScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	upd := domain.ScopeUpdate{
		Name:           req.Name,
		Context:        req.Context,
		LLMPreferences: req.LLMPreferences,
		TemplateID:     req.TemplateID,
		Metadata:       req.Metadata,
	}
	if req.Type != nil {
		t := domain.ScopeType(*req.Type)
		upd.Type = &t
	}

	scope, err := h.scopes.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, scope)
}

func (h *ScopeHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	existed, err := h.scopes.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !existed {
		_ = c.Error(domain.NotFoundError(fmt.Sprintf("scope %q not found", id)))
		return
	}
	c.Status(http.StatusNoContent)
}
