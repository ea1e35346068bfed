package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleInspector = "inspector"
	RoleManager   = "manager"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Actor is the authenticated caller every service operation is evaluated against.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (a *Actor) IsManager() bool {
	return a != nil && a.Role == RoleManager
}

func (a *Actor) IsInspector() bool {
	return a != nil && a.Role == RoleInspector
}

func ValidRole(role string) bool {
	return role == RoleInspector || role == RoleManager
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *Actor `json:"user,omitempty"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenGenerator creates tokens and expiration times.
type TokenGenerator interface {
	GenerateAccessToken(actor *Actor) (token string, err error)
	GenerateRefreshToken(actor *Actor) (token string, claims *Claims, err error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTTL() time.Duration
}

// SessionStore tracks live refresh tokens by their jti so logout and rotation
// can revoke them before they expire.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenID string) (int64, error)
	RevokeRefreshSession(ctx context.Context, tokenID string) error
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
