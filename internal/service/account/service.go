// Package account is the Account Service: registration, profile updates,
// token sessions and the current user lookup. Passwords are kept in the
// user record as given and never leave this package.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrEmailTaken       = fmt.Errorf("email already registered: %w", domain.ErrConflict)
	ErrInvalidToken     = fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	ErrSecretIsRequired = errors.New("secret is required")
)

// ErrInvalidCredentials does not tell an unknown email from a wrong password.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

type Config struct {
	Secret   string
	TokenTTL time.Duration
}

type service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(s store.Store, cfg *Config, logger *slog.Logger) (*service, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretIsRequired
	}

	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	return &service{
		store:    s,
		secret:   []byte(cfg.Secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		logger:   logger,
	}, nil
}

type RegisterParams struct {
	// Id is generated when empty.
	Id       string
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

const (
	passwordField     = "password"
	maxPasswordLength = 128
)

func (s service) Register(ctx context.Context, params *RegisterParams) (domain.User, error) {
	params.Email = strings.TrimSpace(params.Email)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Name, validation.RuneLength(0, 50)),
		validation.Field(&params.Email, validation.Required, is.EmailFormat),
		validation.Field(&params.Password, validation.Required, validation.RuneLength(1, maxPasswordLength)),
		validation.Field(&params.Role, validation.In(domain.RoleUser, domain.RoleModerator, domain.RoleAdmin)),
	); err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	user := domain.User{
		Id:    params.Id,
		Name:  strings.TrimSpace(params.Name),
		Email: params.Email,
		Role:  params.Role,
	}
	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	reservation, err := store.Field("userId", user.Id)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.store.Create(ctx, store.EmailKey(user.Email), reservation); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}

		return domain.User{}, fmt.Errorf("failed to reserve email: %w", err)
	}

	doc, err := store.Encode(user)
	if err != nil {
		return domain.User{}, err
	}

	password, err := store.Field(passwordField, params.Password)
	if err != nil {
		return domain.User{}, err
	}
	doc[passwordField] = password[passwordField]

	if err := s.store.Create(ctx, store.UserKey(user.Id), doc); err != nil {
		if delErr := s.store.Delete(ctx, store.EmailKey(user.Email)); delErr != nil {
			s.logger.WarnContext(ctx, "failed to release email reservation", "error", delErr)
		}

		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, fmt.Errorf("user %s: %w", user.Id, domain.ErrConflict)
		}

		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	index, err := store.Field(user.Id, true)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.store.Merge(ctx, store.UserIndexKey, index); err != nil {
		return domain.User{}, fmt.Errorf("failed to index user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.Id, "role", user.Role)

	return user, nil
}

// account is the stored user record, password included.
type account struct {
	domain.User
	Password string `json:"password"`
}

func (s service) getAccount(ctx context.Context, userId string) (account, error) {
	doc, err := s.store.Get(ctx, store.UserKey(userId))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return account{}, ErrUserNotFound
		}

		return account{}, fmt.Errorf("failed to get user: %w", err)
	}

	var acc account
	if err := store.Decode(doc, &acc); err != nil {
		return account{}, err
	}

	return acc, nil
}

func (s service) GetUser(ctx context.Context, userId string) (domain.User, error) {
	acc, err := s.getAccount(ctx, userId)
	if err != nil {
		return domain.User{}, err
	}

	return acc.User, nil
}

func (s service) getAccountByEmail(ctx context.Context, email string) (account, error) {
	doc, err := s.store.Get(ctx, store.EmailKey(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return account{}, ErrUserNotFound
		}

		return account{}, fmt.Errorf("failed to look up email: %w", err)
	}

	var reservation struct {
		UserId string `json:"userId"`
	}
	if err := store.Decode(doc, &reservation); err != nil {
		return account{}, err
	}

	return s.getAccount(ctx, reservation.UserId)
}

// ListUsers returns every registered user ordered by email.
func (s service) ListUsers(ctx context.Context) ([]domain.User, error) {
	index, err := s.store.Get(ctx, store.UserIndexKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []domain.User{}, nil
		}

		return nil, fmt.Errorf("failed to get user index: %w", err)
	}

	users := make([]domain.User, 0, len(index))
	for userId := range index {
		user, err := s.GetUser(ctx, userId)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	sortUsers(users)

	return users, nil
}
