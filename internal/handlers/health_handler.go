package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the gateway as healthy along with its session backend.
func HealthCheck(sessionBackend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"sessions": sessionBackend,
		})
	}
}
