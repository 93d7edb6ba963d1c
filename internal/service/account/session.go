package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
)

type LoginParams struct {
	Email    string
	Password string
}

type LoginResponse struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time
}

// Login opens a session for the user registered with the email when the
// password matches.
func (s service) Login(ctx context.Context, params *LoginParams) (*LoginResponse, error) {
	acc, err := s.getAccountByEmail(ctx, params.Email)
	if err != nil {
		s.logger.InfoContext(ctx, "login failed", "error", err)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if acc.Password == "" || subtle.ConstantTimeCompare([]byte(acc.Password), []byte(params.Password)) != 1 {
		s.logger.InfoContext(ctx, "login failed", "user_id", acc.Id, "error", "wrong password")
		return nil, ErrInvalidCredentials
	}
	user := acc.User

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	tokenId := uuid.NewString()

	session, err := store.Encode(map[string]any{
		"userId":    user.Id,
		"expiresAt": expiresAt.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, store.SessionKey(tokenId), session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, err := s.generateJWT(user.Id, tokenId, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResponse{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// Logout closes the session of token. Logging out twice is not an error.
func (s service) Logout(ctx context.Context, token string) error {
	claims, err := s.parseJWT(token)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.SessionKey(claims.ID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// GetCurrentUser resolves the user behind an open session token.
func (s service) GetCurrentUser(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.parseJWT(token)
	if err != nil {
		return domain.User{}, err
	}

	if _, err := s.store.Get(ctx, store.SessionKey(claims.ID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: session closed", ErrInvalidToken)
		}

		return domain.User{}, fmt.Errorf("failed to get session: %w", err)
	}

	user, err := s.GetUser(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
	}

	return user, err
}

func (s service) generateJWT(userId, tokenId string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userId,
		ID:        tokenId,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s service) parseJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
