package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`" + `\`

// MaxMessageLength is the Telegram limit in UTF-16 code units.
const MaxMessageLength = 4096

const ellipsis = `…`

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// TruncateV2 cuts already escaped MarkdownV2 text to limit UTF-16 code units,
// ending it with an ellipsis. A trailing escape backslash is never left
// dangling.
func TruncateV2(escaped string, limit int) string {
	if UTF16Len(escaped) <= limit {
		return escaped
	}

	budget := limit - UTF16Len(ellipsis)
	if budget <= 0 {
		return ""
	}

	cut, units := 0, 0
	for i, r := range escaped {
		w := runeUnits(r)
		if units+w > budget {
			break
		}
		units += w
		cut = i + len(string(r))
	}

	head := escaped[:cut]

	trailing := len(head) - len(strings.TrimRight(head, `\`))
	if trailing%2 == 1 {
		head = head[:len(head)-1]
	}

	return head + ellipsis
}

// UTF16Len is the length Telegram counts against its limits.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// TailV2 keeps the end of already escaped MarkdownV2 text within limit UTF-16
// code units, starting it with an ellipsis. It never keeps an escaped
// character without its backslash.
func TailV2(escaped string, limit int) string {
	if UTF16Len(escaped) <= limit {
		return escaped
	}

	budget := limit - UTF16Len(ellipsis)
	if budget <= 0 {
		return ""
	}

	start, units := len(escaped), 0
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(escaped[:start])
		w := runeUnits(r)
		if units+w > budget {
			break
		}
		units += w
		start -= size
	}

	backslashes := start - len(strings.TrimRight(escaped[:start], `\`))
	if backslashes%2 == 1 {
		start++
	}

	return ellipsis + escaped[start:]
}
