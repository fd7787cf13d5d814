package rule

import "strings"

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if IsAlpha(c) || IsDigit(c) {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}

	return true
}

// TrimOWS strips optional whitespace around a field value.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
func TrimOWS(s string) string {
	return strings.Trim(s, " \t")
}
