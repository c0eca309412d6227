package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/08star/my-auth-app/internal/domain/session"
	"github.com/08star/my-auth-app/pkg/errors"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeySessionID ContextKey = "session_id"
	ContextKeyDeviceID  ContextKey = "device_id"
	ContextKeyVerified  ContextKey = "device_verified"
	ContextKeyCreated   ContextKey = "device_created"
)

// TokenValidator resolves a bearer token to its live session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*session.Session, error)
}

// AuthMiddleware guards routes that need a logged-in, active account.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth rejects the request with 401 (or 403 for a disabled account)
// unless it carries a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "missing or malformed bearer token",
			})
			return
		}

		sess, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, errors.ErrAccountDisabled):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":             "account_disabled",
					"error_description": "account is disabled",
				})
			case errors.Is(err, errors.ErrTokenExpired), errors.Is(err, errors.ErrTokenInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":             "unauthorized",
					"error_description": "invalid or expired token",
				})
			default:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":             "server_error",
					"error_description": "internal server error",
				})
			}
			return
		}

		c.Set(string(ContextKeyUserID), sess.UserID.String())
		c.Set(string(ContextKeySessionID), sess.ID.String())

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetUserID extracts the authenticated user's ID.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	return uuidFromContext(c, ContextKeyUserID)
}

// GetSessionID extracts the authenticated session's ID.
func GetSessionID(c *gin.Context) (uuid.UUID, error) {
	return uuidFromContext(c, ContextKeySessionID)
}

func uuidFromContext(c *gin.Context, key ContextKey) (uuid.UUID, error) {
	raw, exists := c.Get(string(key))
	if !exists {
		return uuid.Nil, errors.ErrUnauthorized
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, errors.ErrUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.ErrUnauthorized
	}
	return id, nil
}

// SetDeviceID records the device token a handler acted on, for the request log.
func SetDeviceID(c *gin.Context, token string) {
	c.Set(string(ContextKeyDeviceID), token)
}

// SetDeviceOutcome records what a registration did to the binding.
func SetDeviceOutcome(c *gin.Context, verified, created bool) {
	c.Set(string(ContextKeyVerified), verified)
	c.Set(string(ContextKeyCreated), created)
}

// SetDeviceVerified records the binding state after a verification.
func SetDeviceVerified(c *gin.Context, verified bool) {
	c.Set(string(ContextKeyVerified), verified)
}

// GetClientIP returns the client address as resolved by gin. Forwarding
// headers count only when the peer is a trusted proxy.
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}
