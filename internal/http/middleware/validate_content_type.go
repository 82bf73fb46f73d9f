package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ValidateContentType rejects requests whose body is not one of the allowed
// media types, e.g. "multipart/form-data" or "application/json".
func ValidateContentType(allowed ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		contentType := strings.ToLower(ctx.GetHeader("Content-Type"))

		for _, t := range allowed {
			if strings.HasPrefix(contentType, t) {
				ctx.Next()
				return
			}
		}

		ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"success": false,
			"error":   "Unsupported content type, expected " + strings.Join(allowed, " or "),
		})
	}
}
