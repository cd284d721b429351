package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/souqlink/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request body size. Webhook payloads are small; anything
// oversized is hostile or broken.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "request body exceeds maximum allowed size"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
