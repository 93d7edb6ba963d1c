package account

import (
	"slices"
	"strings"

	"github.com/sharetube/watchparty/internal/domain"
)

func sortUsers(users []domain.User) {
	slices.SortFunc(users, func(a, b domain.User) int {
		return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	})
}
