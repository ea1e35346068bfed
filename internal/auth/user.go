package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetActor(ctx context.Context, userID int64) (*Actor, error)
}

type RepositoryAPI interface {
	GetCredentials(ctx context.Context, identifier string) (*Credentials, error)
	GetActiveActor(ctx context.Context, userID int64) (*Actor, error)
}

// Credentials is what login needs from the user row.
type Credentials struct {
	UserID       int64
	Username     string
	FullName     string
	Role         string
	PasswordHash string
	IsActive     bool
}

func (c *Credentials) Actor() *Actor {
	return &Actor{ID: c.UserID, Username: c.Username, FullName: c.FullName, Role: c.Role}
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
