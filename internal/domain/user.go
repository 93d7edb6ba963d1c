package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User describes an account as seen by the rooms. Role may be empty for
// descriptors coming from clients that do not know about roles.
type User struct {
	Id    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}

	return "Anonymous User"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}

	return false
}
