package domain

import "fmt"

var ErrMemberNotFound = fmt.Errorf("member %w", ErrNotFound)

type MemberRole string

const (
	MemberRoleHost   MemberRole = "host"
	MemberRoleViewer MemberRole = "viewer"
)

type Member struct {
	Id   string     `json:"id"`
	Name string     `json:"name"`
	Role MemberRole `json:"role"`
}

// Members is the room's member set, unique by id, in join order.
type Members []Member

func (m Members) GetById(id string) (Member, int, error) {
	for index, member := range m {
		if member.Id == id {
			return member, index, nil
		}
	}

	return Member{}, 0, ErrMemberNotFound
}

func (m Members) Contains(id string) bool {
	_, _, err := m.GetById(id)
	return err == nil
}

// Add appends member unless a member with the same id is already present.
// The second result reports whether the set changed.
func (m Members) Add(member Member) (Members, bool) {
	if m.Contains(member.Id) {
		return m, false
	}

	out := make(Members, 0, len(m)+1)
	out = append(out, m...)
	out = append(out, member)
	return out, true
}

func (m Members) Hosts() Members {
	var hosts Members
	for _, member := range m {
		if member.Role == MemberRoleHost {
			hosts = append(hosts, member)
		}
	}

	return hosts
}
