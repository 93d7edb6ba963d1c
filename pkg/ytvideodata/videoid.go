package ytvideodata

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIdRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ParseVideoId accepts a bare video id or a youtube.com / youtu.be link
// (watch, embed, shorts) and returns the video id.
func ParseVideoId(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if videoIdRe.MatchString(raw) {
		return raw, true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}

		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "embed" || parts[0] == "shorts" || parts[0] == "live") {
			id = parts[1]
		}
	}

	if !videoIdRe.MatchString(id) {
		return "", false
	}

	return id, true
}
