package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/apperr"
	"callbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps the shared error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrNotVerified), errors.Is(err, apperr.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrCarrier):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}. Unknown errors never leak their text.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	log := logger.From(c.Request.Context())
	switch {
	case errors.Is(err, apperr.ErrConfiguration):
		log.Error("service misconfigured", "error", err)
	case errors.Is(err, apperr.ErrCarrier):
		log.Warn("carrier request failed", "error", err)
	case status == http.StatusInternalServerError:
		log.Error("request failed", "error", err)
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
