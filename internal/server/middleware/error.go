package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
)

// ErrorHandler converts errors attached by handlers into a single JSON
// response. Problems serialize per RFC 9457; domain errors keep their code
// and safe message; anything else is a 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *domain.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("request failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(problem.Log),
				)
			}
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		var derr *domain.Error
		if errors.As(err, &derr) {
			if derr.Log != nil {
				logger.Error("request failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(derr.Log),
				)
			}
			c.JSON(derr.Code, domain.NewProblem(derr.Code, http.StatusText(derr.Code), derr.Message))
			c.Abort()
			return
		}

		logger.Error("unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, domain.NewProblem(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
