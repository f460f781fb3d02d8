package table

import (
	"strings"
	"unicode/utf8"
)

// NormalizeName converts an arbitrary header string into a safe,
// lowercase identifier suitable for column and table names.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}

		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			lastUnderscore = (r == '_')
			continue
		}

		// Drop everything else.
	}

	return strings.Trim(b.String(), "_")
}

// TruncateName enforces backend identifier length limits while keeping
// the result valid UTF-8.
func TruncateName(s string) string {
	const maxLen = 63
	if len(s) <= maxLen {
		return s
	}
	b := []byte(s)
	cut := maxLen
	for cut > 0 && !utf8.Valid(b[:cut]) {
		cut--
	}
	if cut <= 0 {
		return s[:maxLen]
	}
	return string(b[:cut])
}
