package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// Manager issues and validates HS256 access tokens.
type Manager struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a new JWT manager.
func NewManager(issuer, secret string, ttl time.Duration) *Manager {
	return &Manager{
		issuer: issuer,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued access tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Type      string `json:"typ"`
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionUUID parses the sid claim.
func (c *AccessTokenClaims) SessionUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

// CreateAccessToken signs a token for the user's session.
func (m *Manager) CreateAccessToken(userID, sessionID uuid.UUID) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		SessionID: sessionID.String(),
		Type:      "access",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, "failed to sign access token")
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer and expiry.
func (m *Manager) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}

	if !token.Valid || claims.Type != "access" {
		return nil, apperrors.ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	if _, err := claims.SessionUUID(); err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}
