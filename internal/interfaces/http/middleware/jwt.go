package middleware

import (
	"errors"
	"strings"

	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTActorIDKey = "jwt_actor_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// ErrMissingCredentials means the request carried no bearer token
var ErrMissingCredentials = errors.New("missing bearer credentials")

// TokenValidator resolves a bearer token to the acting staff member
type TokenValidator interface {
	Validate(token string) (int64, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// Logger for middleware logging
	Logger *zap.Logger
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{Validator: validator, Logger: log})
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config.
// The token subject becomes the actor id of every order operation.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			handleAuthError(c, cfg, ErrMissingCredentials, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			handleAuthError(c, cfg, ErrMissingCredentials, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			handleAuthError(c, cfg, ErrMissingCredentials, "Missing token")
			return
		}

		actorID, err := cfg.Validator.Validate(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		c.Set(JWTActorIDKey, actorID)
		c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actorID))

		cfg.Logger.Debug("JWT authentication successful", zap.Int64("actor_id", actorID))
		c.Next()
	}
}

// handleAuthError aborts the request with 401
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	cfg.Logger.Info("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	text := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidSubject):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, text, c.GetString(logger.RequestIDContextKey)))
}

// GetActorID retrieves the authenticated actor id from gin.Context
func GetActorID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(JWTActorIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
