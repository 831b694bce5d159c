package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oryx-ai/conductor/pkg/api"
)

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Version: h.version})
}
