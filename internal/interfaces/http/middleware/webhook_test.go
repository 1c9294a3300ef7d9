package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWebhookSecret(t *testing.T) {
	newRouter := func(secret string) *gin.Engine {
		router := gin.New()
		router.POST("/webhook/:secret", WebhookSecret(secret), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	tests := []struct {
		name   string
		secret string
		path   string
		header string
		want   int
	}{
		{"matching path", "s3cret", "/webhook/s3cret", "", http.StatusOK},
		{"matching path and header", "s3cret", "/webhook/s3cret", "s3cret", http.StatusOK},
		{"wrong path", "s3cret", "/webhook/guess", "", http.StatusNotFound},
		{"wrong header", "s3cret", "/webhook/s3cret", "other", http.StatusUnauthorized},
		{"no secret configured", "", "/webhook/anything", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(SecretTokenHeader, tt.header)
			}
			w := httptest.NewRecorder()
			newRouter(tt.secret).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
