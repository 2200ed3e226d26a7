package review

import (
	"net/url"
	"regexp"
)

// DefaultURLLength is the width of the source row.
const DefaultURLLength = 60

var repeatedSlashes = regexp.MustCompile(`/+`)

// TruncateURL compacts an image source to host and path, collapsing repeated
// slashes, and cuts it to maxLength runes with a trailing "...". Strings that
// do not parse as URLs are cut as-is.
func TruncateURL(raw string, maxLength int) string {
	if raw == "" {
		return ""
	}
	if maxLength <= 3 {
		maxLength = DefaultURLLength
	}

	u, err := url.Parse(raw)
	if err != nil {
		return cut(raw, maxLength)
	}
	return cut(u.Hostname()+repeatedSlashes.ReplaceAllString(u.EscapedPath(), "/"), maxLength)
}

func cut(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
