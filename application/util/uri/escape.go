package uri

import (
	"strings"

	"httpwire/application/util/rule"

	"github.com/pkg/errors"
)

type encodeMode uint

const (
	encodeSegment encodeMode = 1 + iota
	encodeQueryComponent
	encodeFragment
)

func hex(c byte) (h [2]byte) {
	const hexSet = "0123456789ABCDEF"
	h[0] = hexSet[c>>4]
	h[1] = hexSet[c&0xF]
	return
}

func unhex(h [2]byte) (c byte) {
	return (hexToNum(h[0]) << 4) | hexToNum(h[1])
}

func hexToNum(h byte) byte {
	switch {
	case '0' <= h && h <= '9':
		return h - '0'
	case 'a' <= h && h <= 'f':
		return h - 'a' + 10
	case 'A' <= h && h <= 'F':
		return h - 'A' + 10
	}
	return 0
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.2
func isSubDelim(c byte) bool {
	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=':
		return true
	}
	return false
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.3
func isUnreserved(c byte) bool {
	if rule.IsAlpha(c) || rule.IsDigit(c) {
		return true
	}
	switch c {
	case '-', '.', '_', '~':
		return true
	}
	return false
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.1
func isPercentEncoded(s string) bool {
	return len(s) == 3 && s[0] == '%' && rule.IsHex(s[1]) && rule.IsHex(s[2])
}

func escape(s string, mode encodeMode) string {
	if !needsEscape(s, mode) {
		return s
	}

	b := new(strings.Builder)
	b.Grow(len(s) + 8)

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if shouldEscape(c, mode) {
			hex := hex(c)
			b.Write([]byte{'%', hex[0], hex[1]})
		} else {
			b.WriteByte(c)
		}
	}

	return b.String()
}

func needsEscape(s string, mode encodeMode) bool {
	for idx := 0; idx < len(s); idx++ {
		if shouldEscape(s[idx], mode) {
			return true
		}
	}
	return false
}

func unescape(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}

	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c == '%' {
			if idx+2 >= len(s) || !isPercentEncoded(s[idx:idx+3]) {
				bad := s[idx:min(len(s), idx+3)]
				return "", errors.Errorf("percent encoding not properly applied: %q", bad)
			}
			b.WriteByte(unhex([2]byte{s[idx+1], s[idx+2]}))
			idx += 2
			continue
		}
		b.WriteByte(c)
	}

	return b.String(), nil
}

// unescapeLenient keeps the raw text when it is not validly percent-encoded.
func unescapeLenient(s string) string {
	if u, err := unescape(s); err == nil {
		return u
	}
	return s
}

func shouldEscape(c byte, mode encodeMode) bool {
	if isUnreserved(c) {
		return false
	}

	switch mode {
	case encodeSegment:
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.3
		return !(isSubDelim(c) || c == ':' || c == '@')
	case encodeQueryComponent:
		// '&' and '=' delimit pairs, '+' is read as space by many servers.
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.4
		switch c {
		case '&', '=', '+':
			return true
		}
		return !(isSubDelim(c) || c == ':' || c == '@' || c == '/' || c == '?')
	case encodeFragment:
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.5
		return !(isSubDelim(c) || c == ':' || c == '@' || c == '/' || c == '?')
	}

	return true
}
