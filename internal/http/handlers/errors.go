package handlers

import (
	"errors"
	"net/http"

	"tourbooking/internal/domain"
	"tourbooking/internal/http/middleware"
	"tourbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the single error body every endpoint returns.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error())
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error())
	default:
		utils.L().Error("unhandled error", "request_id", middleware.GetRequestID(c), "path", c.FullPath(), "error", err, "cause", errors.Unwrap(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
