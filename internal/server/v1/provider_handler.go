package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/provider"
	"github.com/oryx-ai/conductor/internal/server/validator"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
	"github.com/oryx-ai/conductor/pkg/api"
)

// ProviderHandler manages the provider registry. Reads never expose
// credentials; the registry scrubs them before anything leaves the core.
type ProviderHandler struct {
	registry  *services.Registry
	providers store.ProviderRepository
	validator *validator.Validator
}

func NewProviderHandler(registry *services.Registry, providers store.ProviderRepository, v *validator.Validator) *ProviderHandler {
	return &ProviderHandler{registry: registry, providers: providers, validator: v}
}

func (h *ProviderHandler) persist(c *gin.Context, cfg domain.ProviderConfig) bool {
	rec, err := model.ProviderRecordFrom(cfg)
	if err != nil {
		_ = c.Error(domain.InternalError("failed to encode provider", err))
		return false
	}
	if err := h.providers.Upsert(c.Request.Context(), rec); err != nil {
		_ = c.Error(domain.PersistenceError("failed to store provider", err))
		return false
	}
	return true
}

func (h *ProviderHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.AvailableLLMs())
}

func (h *ProviderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	cfg, ok := h.registry.LLMByID(id)
	if !ok {
		_ = c.Error(domain.NotFoundError(fmt.Sprintf("provider %q not found", id)))
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ProviderHandler) Register(c *gin.Context) {
	var req api.RegisterProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	cfg := domain.ProviderConfig{
		ID:            req.ID,
		Type:          req.Type,
		Name:          req.Name,
		Description:   req.Description,
		Capabilities:  req.Capabilities,
		DefaultParams: req.DefaultParams,
		Enabled:       req.Enabled,
		Cost:          req.Cost,
		BaseURL:       req.BaseURL,
		Model:         req.Model,
		Extra:         req.Extra,
		Credential:    req.APIKey,
	}

	adapter, err := provider.New(cfg)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.registry.Register(cfg, adapter); err != nil {
		_ = c.Error(err)
		return
	}
	if !h.persist(c, cfg) {
		return
	}

	registered, _ := h.registry.LLMByID(cfg.ID)
	c.JSON(http.StatusCreated, registered)
}

func (h *ProviderHandler) Update(c *gin.Context) {
	var req api.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	cfg, err := h.registry.UpdateLLMConfig(c.Param("id"), domain.ProviderPatch{
		Name:          req.Name,
		Description:   req.Description,
		Capabilities:  req.Capabilities,
		DefaultParams: req.DefaultParams,
		Enabled:       req.Enabled,
		Cost:          req.Cost,
		BaseURL:       req.BaseURL,
		Model:         req.Model,
		Extra:         req.Extra,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !h.persist(c, *cfg) {
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ProviderHandler) SetKey(c *gin.Context) {
	var req api.SetAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	id := c.Param("id")
	if err := h.registry.SetUserAPIKey(id, req.APIKey); err != nil {
		_ = c.Error(err)
		return
	}

	// Persist so the key survives a restart. LLMByID scrubs the
	// credential, so set it from the request before writing.
	cfg, ok := h.registry.LLMByID(id)
	if !ok {
		_ = c.Error(domain.NotFoundError(fmt.Sprintf("provider %q not found", id)))
		return
	}
	cfg.Credential = req.APIKey
	if !h.persist(c, *cfg) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProviderHandler) ValidateKey(c *gin.Context) {
	var req api.SetAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	valid := h.registry.ValidateAPIKey(c.Request.Context(), c.Param("id"), req.APIKey)
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *ProviderHandler) SetEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	id := c.Param("id")
	if err := h.registry.SetEnabled(id, *req.Enabled); err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.providers.SetEnabled(c.Request.Context(), id, *req.Enabled); err != nil {
		_ = c.Error(domain.PersistenceError(fmt.Sprintf("failed to persist enabled flag for %q", id), err))
		return
	}
	c.Status(http.StatusNoContent)
}
