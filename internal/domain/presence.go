package domain

import "time"

type PresenceEntry struct {
	User     User  `json:"user"`
	LastSeen int64 `json:"lastSeen"`
}

func (e PresenceEntry) IsActive(now time.Time, window time.Duration) bool {
	return now.Sub(time.UnixMilli(e.LastSeen)) < window
}
