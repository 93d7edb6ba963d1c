package connection

import (
	"fmt"

	"github.com/sharetube/watchparty/internal/domain"
)

var (
	ErrAlreadyExists = fmt.Errorf("connection already registered: %w", domain.ErrConflict)
	ErrNotFound      = fmt.Errorf("connection %w", domain.ErrNotFound)
)
