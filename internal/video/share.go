package video

import (
	"fmt"
	"strings"

	"mvdan.cc/xurls/v2"
)

// ExtractLink returns the first http(s) link found in free text.
func ExtractLink(text string) (string, bool) {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return "", false
	}

	link := strings.TrimSpace(re.FindString(text))
	if link == "" {
		return "", false
	}

	return link, true
}

// ShareItems lists what is handed to a share sheet: the summary first,
// then the original link. Empty items are dropped.
func ShareItems(summary string, rawURL string) []string {
	items := make([]string, 0, 2)

	if s := strings.TrimSpace(summary); s != "" {
		items = append(items, s)
	}

	if u := strings.TrimSpace(rawURL); u != "" {
		items = append(items, u)
	}

	return items
}

func ShareSubject(rawURL string) string {
	return fmt.Sprintf("Summary of %s", strings.TrimSpace(rawURL))
}

func ShareText(summary string, rawURL string) string {
	items := ShareItems(summary, rawURL)
	if len(items) == 0 {
		return ""
	}

	return ShareSubject(rawURL) + "\n\n" + strings.Join(items, "\n\n")
}
