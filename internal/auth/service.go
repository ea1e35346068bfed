package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by a SessionStore for unknown or expired tokens.
var ErrSessionNotFound = stdErrors.New("refresh session not found")

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	sessions       SessionStore
	logger         *slog.Logger
}

// NewService creates a new auth service. sessions may be nil, in which case
// refresh tokens are accepted until they expire.
func NewService(repo RepositoryAPI, tokenGen TokenGenerator, sessions SessionStore, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		sessions:       sessions,
		logger:         logger,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return AuthTokens{}, appErr
	}

	creds, err := s.repo.GetCredentials(ctx, dto.Identifier)
	if err != nil {
		if stdErrors.Is(err, errors.ErrUserNotFound) {
			return AuthTokens{}, errors.ErrInvalidCredentials
		}
		return AuthTokens{}, errors.NewStorageError("failed to load credentials", err)
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login rejected", "identifier", dto.Identifier)
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	if !creds.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	actor := creds.Actor()
	tokens, err := s.issue(ctx, actor)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("user logged in", "user_id", actor.ID, "role", actor.Role)
	return tokens, nil
}

// RefreshTokens validates refresh token and returns new tokens. The presented
// token is revoked when a session store is configured.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	if s.sessions != nil {
		if _, err := s.sessions.LookupRefreshSession(ctx, claims.ID); err != nil {
			if stdErrors.Is(err, ErrSessionNotFound) {
				return AuthTokens{}, errors.ErrInvalidToken
			}
			return AuthTokens{}, errors.NewInternalError("failed to check refresh session", err)
		}
		if err := s.sessions.RevokeRefreshSession(ctx, claims.ID); err != nil {
			return AuthTokens{}, errors.NewInternalError("failed to rotate refresh session", err)
		}
	}

	actor, err := s.GetActor(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}

	return s.issue(ctx, actor)
}

// Logout revokes the refresh token. Unknown or already revoked tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s.sessions == nil || refreshToken == "" {
		return nil
	}
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.RevokeRefreshSession(ctx, claims.ID); err != nil {
		return errors.NewInternalError("failed to revoke refresh session", err)
	}
	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// GetActor reloads the user so deactivated accounts lose access immediately.
func (s *Service) GetActor(ctx context.Context, userID int64) (*Actor, error) {
	actor, err := s.repo.GetActiveActor(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, errors.NewStorageError("failed to load user", err)
	}
	return actor, nil
}

func (s *Service) issue(ctx context.Context, actor *Actor) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(actor)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign access token", err)
	}

	refreshToken, claims, err := s.tokenGenerator.GenerateRefreshToken(actor)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to sign refresh token", err)
	}

	if s.sessions != nil {
		if err := s.sessions.SaveRefreshSession(ctx, claims.ID, actor.ID, claims.ExpiresAt.Time); err != nil {
			return AuthTokens{}, errors.NewInternalError("failed to store refresh session", err)
		}
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
		User:         actor,
	}, nil
}

func (j *JWTTokenGenerator) AccessTTL() time.Duration {
	return j.AccessTokenTTL
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(actor *Actor) (string, error) {
	claims := j.newClaims(actor, tokenTypeAccess, j.AccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.AccessTokenSecret)
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(actor *Actor) (string, *Claims, error) {
	claims := j.newClaims(actor, tokenTypeRefresh, j.RefreshTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.RefreshTokenSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (j *JWTTokenGenerator) newClaims(actor *Actor, tokenType string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID:    actor.ID,
		Username:  actor.Username,
		Role:      actor.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(actor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.AccessTokenSecret, tokenTypeAccess)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.RefreshTokenSecret, tokenTypeRefresh)
}

func (j *JWTTokenGenerator) validate(tokenString string, secret []byte, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if stdErrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
