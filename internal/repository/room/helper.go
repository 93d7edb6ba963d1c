package room

import (
	"slices"

	"github.com/sharetube/watchparty/internal/domain"
)

func sortByCreatedAtDesc(rooms []domain.Room) {
	slices.SortStableFunc(rooms, func(a, b domain.Room) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
