package middleware

import (
	"github.com/gin-gonic/gin"
)

// AbortWithError writes the standard error envelope and stops the chain.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      message,
		"request_id": GetRequestID(c),
	})
}
