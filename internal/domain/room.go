package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRoomNotFound       = fmt.Errorf("room %w", ErrNotFound)
	ErrInviteCodeNotFound = fmt.Errorf("invite code %w", ErrNotFound)
)

type Room struct {
	Id            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	IsPrivate     bool      `json:"isPrivate"`
	InviteCode    string    `json:"inviteCode,omitempty"`
	ActiveVideoId string    `json:"activeVideoId"`
	CustomVideos  []Video   `json:"customVideos"`
	Users         Members   `json:"users"`
}

func (r Room) Host() (Member, error) {
	member, _, err := r.Users.GetById(r.CreatedBy)
	return member, err
}

func (r Room) IsMember(userId string) bool {
	return r.Users.Contains(userId)
}

func (r Room) IsOwner(userId string) bool {
	return userId != "" && r.CreatedBy == userId
}

// VisibleTo reports whether the room shows up in user's room listing.
func (r Room) VisibleTo(user User) bool {
	return !r.IsPrivate || r.IsOwner(user.Id) || user.IsAdmin()
}

func (r Room) MatchesInviteCode(code string) bool {
	return r.InviteCode != "" && strings.EqualFold(r.InviteCode, code)
}

func (r Room) ActiveVideo() (Video, error) {
	return ResolveVideo(r.ActiveVideoId, r.CustomVideos)
}

// Validate checks the structural invariants every stored room must hold.
func (r Room) Validate() error {
	var errs []error

	if r.Id == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if r.CreatedBy == "" {
		errs = append(errs, errors.New("createdBy is empty"))
	}

	hosts := r.Users.Hosts()
	switch {
	case len(hosts) != 1:
		errs = append(errs, fmt.Errorf("room must have exactly one host, got %d", len(hosts)))
	case hosts[0].Id != r.CreatedBy:
		errs = append(errs, errors.New("host must be the room creator"))
	}

	if r.IsPrivate && r.InviteCode == "" {
		errs = append(errs, errors.New("private room must have an invite code"))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
}
