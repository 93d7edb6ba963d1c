package room

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sharetube/watchparty/internal/domain"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

var RoomNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 100),
}

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile(`^[a-zA-Z0-9-]{1,64}$`)),
}

var InviteCodeRule = []validation.Rule{
	validation.Match(regexp.MustCompile(fmt.Sprintf(`^[a-zA-Z0-9]{%d}$`, roomrepo.InviteCodeLength))),
}

var VideoNameRule = []validation.Rule{
	validation.RuneLength(0, 200),
}

var VideoKindRule = []validation.Rule{
	validation.In(domain.VideoKindDirect, domain.VideoKindYoutube),
}

var UserRule = []validation.Rule{
	validation.By(func(value any) error {
		u, _ := value.(domain.User)
		if u.Id == "" {
			return validation.NewError("validation_user_id", "must have an id")
		}
		return nil
	}),
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
}
