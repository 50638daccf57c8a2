package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

// ErrorResponse is the transport shape for failed requests.
type ErrorResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// ErrorHandler converts errors attached by handlers into JSON responses.
// Domain errors map through their status code and keep their details (for
// example the remaining lead time of a rejected cancellation); everything
// else is a 500 with the message withheld.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		lastErr := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(lastErr, &appErr) {
			c.JSON(appErr.StatusCode(), ErrorResponse{
				Code:    appErr.StatusCode(),
				Message: appErr.Message,
				Details: appErr.Details,
				TraceID: traceID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			TraceID: traceID,
		})
	}
}
