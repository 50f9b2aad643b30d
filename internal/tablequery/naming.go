package tablequery

import (
	"strings"
	"unicode"
)

// CamelToSnake converts startsWith to starts_with.
// An underscore is only inserted before a capital that follows a lower-case
// letter or a digit, so already snake-cased input is left as is.
func CamelToSnake(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ToUpperSnake converts a match mode to its wire token: startsWith -> STARTS_WITH.
func ToUpperSnake(s string) string {
	return strings.ToUpper(CamelToSnake(s))
}
