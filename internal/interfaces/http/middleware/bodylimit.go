package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/concierge/backend/internal/interfaces/http/dto"
)

// BodyLimit caps the request body at maxBytes. Bulk rate payloads are the
// largest bodies this API accepts; anything bigger is rejected up front.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"))
			return
		}

		// Streaming requests may omit Content-Length; enforce the cap on read
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
