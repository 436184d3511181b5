// Package nameutil validates and normalizes stream and property names.
package nameutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidateStreamName checks whether name is acceptable as a Singer stream
// name. It trims and checks for empty names and non-UTF8 bytes. It does
// NOT mutate the input; use Sanitize first when cleanup is desired.
func ValidateStreamName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid stream name: name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("invalid stream name: contains invalid encoding")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid stream name: contains control character U+%04X (%q)", r, r)
		}
	}
	return nil
}

// Sanitize removes control characters, NULs, and zero-width characters
// commonly introduced by copy/paste (e.g., U+200B), trims surrounding
// whitespace, and reports whether any change was made.
func Sanitize(name string) (string, bool) {
	if name == "" {
		return name, false
	}
	runes := []rune(name)
	out := make([]rune, 0, len(runes))
	changed := false
	for _, r := range runes {
		if unicode.IsControl(r) {
			changed = true
			continue
		}
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			changed = true
			continue
		}
		out = append(out, r)
	}
	res := strings.TrimSpace(string(out))
	if res != name {
		changed = true
	}
	return res, changed
}

// ConformIdentifier converts a stream or property name into a safe SQL
// identifier: lowercase snake_case with non-alphanumerics collapsed to
// underscores. Names starting with a digit gain a leading underscore.
func ConformIdentifier(name string) string {
	name, _ = Sanitize(name)
	var b strings.Builder
	var prev rune
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			// underscore only at a lower-to-upper boundary, so acronym
			// runs stay together
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			if prev != '_' && b.Len() > 0 {
				b.WriteByte('_')
			}
			r = '_'
		}
		prev = r
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
