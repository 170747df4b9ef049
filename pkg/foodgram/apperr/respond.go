package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status returns the HTTP status code for an error
func Status(err error) int {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var conflictErr *ConflictError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &conflictErr), errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, ErrGenerationExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err to the client using the error's category.
// Unexpected errors are logged and hidden behind a generic message.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	var validationErr *ValidationError
	var conflictErr *ConflictError

	status := Status(err)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(status, validationErr.Fields)
	case status == http.StatusNotFound:
		c.JSON(status, gin.H{"detail": DetailNotFound})
	case errors.Is(err, ErrForbidden):
		c.JSON(status, gin.H{"detail": ErrForbidden.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(status, gin.H{"errors": conflictErr.Message})
	case errors.Is(err, ErrEmptyCart):
		c.JSON(status, gin.H{"errors": ErrEmptyCart.Error()})
	case errors.Is(err, ErrGenerationExhausted):
		c.JSON(status, gin.H{"errors": ErrGenerationExhausted.Error()})
	default:
		if logger != nil {
			logger.Error("Request failed",
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		c.JSON(status, gin.H{"error": DetailInternal})
	}
}
