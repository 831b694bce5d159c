package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/services"
	"github.com/oryx-ai/conductor/internal/server/validator"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
	"github.com/oryx-ai/conductor/pkg/api"
)

// RuleHandler manages classification rules. Mutations go to the live
// classifier first (it rejects bad patterns), then to the store.
type RuleHandler struct {
	classifier *services.Classifier
	rules      store.RuleRepository
	validator  *validator.Validator
}

func NewRuleHandler(classifier *services.Classifier, rules store.RuleRepository, v *validator.Validator) *RuleHandler {
	return &RuleHandler{classifier: classifier, rules: rules, validator: v}
}

func ruleFromRequest(req api.RuleRequest) domain.ClassificationRule {
	return domain.ClassificationRule{
		ID:            req.ID,
		Category:      domain.Category(req.Category),
		Patterns:      req.Patterns,
		Keywords:      req.Keywords,
		Weight:        req.Weight,
		LLMMapping:    req.LLMMapping,
		MinConfidence: req.MinConfidence,
	}
}

func (h *RuleHandler) persist(c *gin.Context, rule domain.ClassificationRule) bool {
	rec, err := model.RuleRecordFrom(rule)
	if err != nil {
		_ = c.Error(domain.InternalError("failed to encode rule", err))
		return false
	}
	if err := h.rules.Upsert(c.Request.Context(), rec); err != nil {
		_ = c.Error(domain.PersistenceError("failed to store rule", err))
		return false
	}
	return true
}

func (h *RuleHandler) Create(c *gin.Context) {
	var req api.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	rule := ruleFromRequest(req)
	if err := h.classifier.AddRule(rule); err != nil {
		_ = c.Error(err)
		return
	}
	if !h.persist(c, rule) {
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	var req api.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(h.validator.ParseError(err)))
		return
	}

	id := c.Param("id")
	rule := ruleFromRequest(req)
	rule.ID = id
	if err := h.classifier.UpdateRule(id, rule); err != nil {
		_ = c.Error(err)
		return
	}
	if !h.persist(c, rule) {
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.classifier.Rules())
}

func (h *RuleHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.classifier.RemoveRule(id); err != nil {
		_ = c.Error(err)
		return
	}
	if _, err := h.rules.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(domain.PersistenceError(fmt.Sprintf("failed to delete rule %q", id), err))
		return
	}
	c.Status(http.StatusNoContent)
}
