package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lablabs/storefront-client/internal/ast"
	"github.com/lablabs/storefront-client/internal/client"
	"github.com/lablabs/storefront-client/internal/logging"
	"github.com/lablabs/storefront-client/internal/models"
	"github.com/lablabs/storefront-client/internal/query"
)

// ErrorHandler middleware handles errors and logs them
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		status := StatusFor(err.Err)
		if status == http.StatusInternalServerError && err.IsType(gin.ErrorTypeBind) {
			status = http.StatusBadRequest
		}
		logging.Error("Request error", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
			"error":  err.Error(),
		})
		if !c.Writer.Written() {
			c.JSON(status, models.ErrorResponse{Error: err.Error()})
		}
	}
}

// StatusFor maps an error to the HTTP status returned to gateway callers.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ast.ErrUnknownKind),
		errors.Is(err, query.ErrNilDocument),
		errors.Is(err, query.ErrUnsupportedSelection),
		errors.Is(err, query.ErrUnsupportedValue),
		errors.Is(err, query.ErrFragmentCycle):
		return http.StatusUnprocessableEntity
	case errors.Is(err, client.ErrHTTPStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
