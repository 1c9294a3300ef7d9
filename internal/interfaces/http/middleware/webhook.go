package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SecretTokenHeader is set by the chat platform on every webhook delivery
// when the webhook was registered with a secret token
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret rejects webhook deliveries whose path secret does not match.
// When the platform header is present it must match as well.
func WebhookSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(c.Param("secret")), want) != 1 {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "Not found"))
			return
		}
		if h := c.GetHeader(SecretTokenHeader); h != "" && subtle.ConstantTimeCompare([]byte(h), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Invalid secret token"))
			return
		}
		c.Next()
	}
}
