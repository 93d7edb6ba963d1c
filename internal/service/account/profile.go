package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/store"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)

// UpdateProfileParams changes the non-nil fields only.
type UpdateProfileParams struct {
	UserId string
	Name   *string
	Email  *string
}

// UpdateProfile merges name and email into the user record. A new email is
// reserved before the record changes and the old reservation is released
// after.
func (s service) UpdateProfile(ctx context.Context, params *UpdateProfileParams) (domain.User, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		params.Name = &name
	}
	if params.Email != nil {
		email := strings.TrimSpace(*params.Email)
		params.Email = &email
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Name, validation.RuneLength(0, 50)),
		validation.Field(&params.Email, validation.NilOrNotEmpty, is.EmailFormat),
	); err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	user, err := s.GetUser(ctx, params.UserId)
	if err != nil {
		return domain.User{}, err
	}

	emailChanged := params.Email != nil && store.EmailKey(*params.Email) != store.EmailKey(user.Email)
	if emailChanged {
		reservation, err := store.Field("userId", user.Id)
		if err != nil {
			return domain.User{}, err
		}

		if err := s.store.Create(ctx, store.EmailKey(*params.Email), reservation); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.User{}, ErrEmailTaken
			}

			return domain.User{}, fmt.Errorf("failed to reserve email: %w", err)
		}
	}

	fields, err := omitnilpointers.MarshalFields(map[string]any{
		"name":  params.Name,
		"email": params.Email,
	})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.store.Merge(ctx, store.UserKey(user.Id), store.Document(fields)); err != nil {
		if emailChanged {
			if delErr := s.store.Delete(ctx, store.EmailKey(*params.Email)); delErr != nil {
				s.logger.WarnContext(ctx, "failed to release email reservation", "error", delErr)
			}
		}

		return domain.User{}, fmt.Errorf("failed to update profile: %w", err)
	}

	if emailChanged {
		if err := s.store.Delete(ctx, store.EmailKey(user.Email)); err != nil {
			s.logger.WarnContext(ctx, "failed to release old email", "user_id", user.Id, "error", err)
		}
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	s.logger.InfoContext(ctx, "profile updated", "user_id", user.Id)

	return user, nil
}
