package uri

import "strings"

type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeHTTP
	SchemeHTTPS
	SchemeLDAP
	SchemeMailto
	SchemeNews
	SchemeTel
	SchemeTelnet
	SchemeURN
)

var schemeNames = [...]string{
	SchemeUnknown: "",
	SchemeHTTP:    "http",
	SchemeHTTPS:   "https",
	SchemeLDAP:    "ldap",
	SchemeMailto:  "mailto",
	SchemeNews:    "news",
	SchemeTel:     "tel",
	SchemeTelnet:  "telnet",
	SchemeURN:     "urn",
}

func (s Scheme) String() string {
	if int(s) >= len(schemeNames) {
		return ""
	}
	return schemeNames[s]
}

// IsHTTP reports whether the scheme is decomposed into authority, path and query.
func (s Scheme) IsHTTP() bool { return s == SchemeHTTP || s == SchemeHTTPS }

// DefaultPort returns the port implied by the scheme, or 0 if there is none.
func (s Scheme) DefaultPort() uint16 {
	switch s {
	case SchemeHTTP:
		return 80
	case SchemeHTTPS:
		return 443
	}
	return 0
}

// ParseScheme looks the scheme name up case-insensitively.
func ParseScheme(name string) Scheme {
	name = strings.ToLower(name)
	for s, n := range schemeNames {
		if n != "" && n == name {
			return Scheme(s)
		}
	}
	return SchemeUnknown
}

// cutScheme detects the scheme of raw. http and https must be followed by
// "://", other schemes only by ':'. The returned rest never includes the
// delimiter; for an unknown scheme it is the whole input.
func cutScheme(raw string) (Scheme, string) {
	for _, s := range [...]Scheme{SchemeHTTPS, SchemeHTTP} {
		prefix := s.String() + "://"
		if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
			return s, raw[len(prefix):]
		}
	}

	name, rest, found := strings.Cut(raw, ":")
	if !found {
		return SchemeUnknown, raw
	}

	switch s := ParseScheme(name); s {
	case SchemeUnknown, SchemeHTTP, SchemeHTTPS:
		// http without "//" is not an absolute http URI.
		return SchemeUnknown, raw
	default:
		return s, rest
	}
}
