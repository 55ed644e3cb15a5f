package video

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ytsummarizer/internal/domain"
)

const (
	embedBaseURL     = "https://www.youtube.com/embed/"
	watchBaseURL     = "https://www.youtube.com/watch"
	thumbnailBaseURL = "https://i.ytimg.com/vi/"

	embedFrameWidth  = 600
	embedFrameHeight = 600
)

var (
	ErrNotYouTube     = errors.New("not a YouTube link")
	ErrMissingVideoID = errors.New("YouTube link has no video ID")

	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	youTubeHosts = map[string]struct{}{
		"youtube.com":              {},
		"www.youtube.com":          {},
		"m.youtube.com":            {},
		"music.youtube.com":        {},
		"youtube-nocookie.com":     {},
		"www.youtube-nocookie.com": {},
	}

	// Path prefixes that carry the video ID as the next segment.
	idPathPrefixes = []string{"embed", "shorts", "live", "v", "e"}
)

// ParseVideoID extracts the 11 character video ID from any YouTube link shape:
// watch links (including playlist and timestamp parameters), youtu.be short
// links and /embed/, /shorts/, /live/ and /v/ paths.
func ParseVideoID(raw string) (string, error) {
	u, err := domain.ParseVideoURL(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())

	var id string

	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = firstPathSegment(u.Path)
	case isYouTubeHost(host):
		id = youTubeHostVideoID(u)
	default:
		return "", fmt.Errorf("%w (host = %s)", ErrNotYouTube, host)
	}

	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("%w (URL = %s)", ErrMissingVideoID, raw)
	}

	return id, nil
}

func isYouTubeHost(host string) bool {
	_, ok := youTubeHosts[host]
	return ok
}

func youTubeHostVideoID(u *url.URL) string {
	path := strings.Trim(u.Path, "/")

	if path == "watch" {
		return strings.TrimSpace(u.Query().Get("v"))
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return ""
	}

	for _, prefix := range idPathPrefixes {
		if parts[0] == prefix {
			return parts[1]
		}
	}

	return ""
}

func firstPathSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}

	return path
}

func WatchURL(id string) string {
	return watchBaseURL + "?v=" + url.QueryEscape(id)
}

func ThumbnailURL(id string) string {
	return thumbnailBaseURL + url.PathEscape(id) + "/hqdefault.jpg"
}

// EmbedURL returns the embeddable player URL for raw, keeping a start offset
// when the link has one. Links that are not recognised are returned as-is.
func EmbedURL(raw string) string {
	id, err := ParseVideoID(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	embed := embedBaseURL + id

	if start, ok := startOffset(raw); ok {
		embed += "?start=" + strconv.Itoa(start)
	}

	return embed
}

// EmbedHTML renders the iframe used by the video preview web view.
func EmbedHTML(raw string) string {
	return fmt.Sprintf(
		`<iframe width="%d" height="%d" src="%s" frameborder="0" allowfullscreen></iframe>`,
		embedFrameWidth,
		embedFrameHeight,
		html.EscapeString(EmbedURL(raw)),
	)
}

// startOffset reads "t" or "start" as seconds, accepting the 1h2m3s form.
func startOffset(raw string) (int, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}

	q := u.Query()

	value := q.Get("start")
	if value == "" {
		value = q.Get("t")
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(strings.TrimSuffix(value, "s")); err == nil {
		return seconds, seconds > 0
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < time.Second {
		return 0, false
	}

	return int(d / time.Second), true
}
