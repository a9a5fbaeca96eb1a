// Package sanitize rewrites result names into filesystem- and link-safe text.
package sanitize

import "strings"

// DefaultReplacement is written for any character missing from the table.
const DefaultReplacement = "."

// Sanitizer replaces every character that is not an ASCII letter or digit.
type Sanitizer struct {
	table map[rune]string
}

// New builds a sanitizer from a substitution table keyed by single characters.
// Keys that are not exactly one character are ignored.
func New(replacements map[string]string) *Sanitizer {
	table := make(map[rune]string, len(replacements))
	for k, v := range replacements {
		r := []rune(k)
		if len(r) != 1 {
			continue
		}
		table[r[0]] = v
	}
	return &Sanitizer{table: table}
}

// Filename returns name with every non-alphanumeric character substituted.
func (s *Sanitizer) Filename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isASCIIAlnum(r) {
			b.WriteRune(r)
			continue
		}
		if rep, ok := s.table[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteString(DefaultReplacement)
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Filename sanitizes name with an empty table.
func Filename(name string) string {
	return defaultSanitizer.Filename(name)
}

var defaultSanitizer = New(nil)
