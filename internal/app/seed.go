package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/internal/service/account"
)

const (
	DemoAdminId    = "demo-admin"
	DemoUserId     = "demo-user"
	DemoRoomId     = "demo-room-1"
	DemoInviteCode = "DEMOROOM"

	DemoAdminEmail    = "admin@example.com"
	DemoAdminPassword = "admin123"
	DemoUserEmail     = "user@example.com"
	DemoUserPassword  = "user123"
)

type iAccountService interface {
	Register(ctx context.Context, params *account.RegisterParams) (domain.User, error)
	GetUser(ctx context.Context, userId string) (domain.User, error)
}

type iRoomRepo interface {
	Create(ctx context.Context, params *roomrepo.CreateParams) (domain.Room, error)
	AddUser(ctx context.Context, params *roomrepo.AddUserParams) (domain.Room, error)
	SetPrivacy(ctx context.Context, params *roomrepo.SetPrivacyParams) (domain.Room, error)
}

func ensureUser(ctx context.Context, accounts iAccountService, params *account.RegisterParams) (domain.User, error) {
	user, err := accounts.Register(ctx, params)
	if errors.Is(err, domain.ErrConflict) {
		return accounts.GetUser(ctx, params.Id)
	}

	return user, err
}

// seedDemo creates the demo accounts and the public demo room. Running it
// again leaves existing records alone.
func seedDemo(ctx context.Context, accounts iAccountService, rooms iRoomRepo, logger *slog.Logger) error {
	admin, err := ensureUser(ctx, accounts, &account.RegisterParams{
		Id:       DemoAdminId,
		Name:     "Admin",
		Email:    DemoAdminEmail,
		Password: DemoAdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	user, err := ensureUser(ctx, accounts, &account.RegisterParams{
		Id:       DemoUserId,
		Name:     "Demo User",
		Email:    DemoUserEmail,
		Password: DemoUserPassword,
		Role:     domain.RoleUser,
	})
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	// Created private so the fixed invite code sticks, then opened up.
	_, err = rooms.Create(ctx, &roomrepo.CreateParams{
		Id:         DemoRoomId,
		Name:       "Demo Room",
		Creator:    admin,
		IsPrivate:  true,
		InviteCode: DemoInviteCode,
	})
	if errors.Is(err, roomrepo.ErrRoomIdTaken) {
		logger.InfoContext(ctx, "demo data already present")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed room: %w", err)
	}

	if _, err := rooms.SetPrivacy(ctx, &roomrepo.SetPrivacyParams{RoomId: DemoRoomId, Actor: admin, IsPrivate: false}); err != nil {
		return fmt.Errorf("failed to open demo room: %w", err)
	}

	if _, err := rooms.AddUser(ctx, &roomrepo.AddUserParams{RoomId: DemoRoomId, User: user}); err != nil {
		return fmt.Errorf("failed to add demo user: %w", err)
	}

	logger.InfoContext(ctx, "demo data seeded", "room_id", DemoRoomId)
	return nil
}
