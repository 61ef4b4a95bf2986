// Package keys builds cache keys for boundary documents.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Key returns the cache key for one boundary document. The digest covers
// the raw inputs so two codes that sanitize to the same text still get
// distinct keys.
func Key(code string, year int, crs string) string {
	raw := fmt.Sprintf("%s|%d|%s", strings.TrimSpace(code), year, strings.ToUpper(strings.TrimSpace(crs)))
	sum := xxhash.Sum64String(raw)
	return fmt.Sprintf("boundary:%s:%d:%s:h=%016x",
		sanitize(code), year, sanitize(crs), sum)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
