package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/store"
)

type UsageHandler struct {
	usage store.UsageRepository
}

func NewUsageHandler(usage store.UsageRepository) *UsageHandler {
	return &UsageHandler{usage: usage}
}

func (h *UsageHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 1000 {
		_ = c.Error(domain.BadRequestError("limit must be an integer between 1 and 1000"))
		return
	}

	logs, err := h.usage.GetRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(domain.PersistenceError("failed to read usage logs", err))
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *UsageHandler) Daily(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 || days > 365 {
		_ = c.Error(domain.BadRequestError("days must be an integer between 1 and 365"))
		return
	}

	stats, err := h.usage.GetDailyStats(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(domain.PersistenceError("failed to read usage stats", err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
