package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/orderhook/internal/order/domain"
	"github.com/smallbiznis/orderhook/internal/shopify"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	errorType, code := classifyErrorForLog(err)
	switch errorType {
	case "unauthorized":
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "invalid webhook signature"}
	case "validation_error":
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: code}
	case "not_found":
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	case "service_unavailable":
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "service unavailable"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

// classifyErrorForLog maps domain errors to a coarse type and code, shared
// by the response mapper and the request-log middleware.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, shopify.ErrMissingSignature),
		errors.Is(err, shopify.ErrInvalidSignature):
		return "unauthorized", err.Error()
	case errors.Is(err, orderdomain.ErrInvalidPayload),
		errors.Is(err, orderdomain.ErrMissingOrderID),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, ErrInvalidRequest):
		return "validation_error", err.Error()
	case errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found", "not_found"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable", "service_unavailable"
	default:
		return "internal_error", "internal_error"
	}
}
