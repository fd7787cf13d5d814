package uri

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidPort = errors.New("port is not a valid 16-bit number")

// FragmentPolicy selects which '#' starts the fragment.
type FragmentPolicy uint8

const (
	// FragmentLastHash uses the last '#' of the URI, so a '#' followed by a later
	// '?' still ends the path. This matches long-standing client behaviour and is
	// the default until product intent is confirmed.
	FragmentLastHash FragmentPolicy = iota
	// FragmentFirstHash follows RFC 3986: the first '#' starts the fragment.
	FragmentFirstHash
)

func (p FragmentPolicy) String() string {
	if p == FragmentFirstHash {
		return "first"
	}
	return "last"
}

func (p *FragmentPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "last":
		*p = FragmentLastHash
	case "first":
		*p = FragmentFirstHash
	default:
		return errors.Errorf("unknown fragment policy %q", text)
	}
	return nil
}

func (p FragmentPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

type ParseOptions struct {
	Fragment FragmentPolicy `yaml:"fragment"`
}

var DefaultParseOptions = ParseOptions{
	Fragment: FragmentLastHash,
}

type Authority struct {
	UserInfo string
	Host     string
	// Port is always populated, defaulted from the scheme when absent.
	Port uint16
}

// HostPort renders host[:port], omitting the port when it equals def.
func (a Authority) HostPort(def uint16) string {
	if a.Port == def {
		return a.Host
	}
	return a.Host + ":" + strconv.FormatUint(uint64(a.Port), 10)
}

// URI is immutable once parsed; use [URI.Set] to re-derive every field at once.
type URI struct {
	raw    string
	scheme Scheme

	// For http and https only.
	authority   Authority
	rooted      bool
	path        []string
	query       map[string]string
	fragment    string
	hasFragment bool

	// Remainder after the scheme for the other schemes.
	opaque string
}

// Parse decomposes raw with [DefaultParseOptions].
func Parse(raw string) (URI, error) {
	return ParseWithOptions(raw, DefaultParseOptions)
}

func ParseWithOptions(raw string, opts ParseOptions) (URI, error) {
	u := URI{raw: raw}

	var rest string
	u.scheme, rest = cutScheme(raw)
	if !u.scheme.IsHTTP() {
		u.opaque = rest
		return u, nil
	}

	authEnd := strings.IndexByte(rest, '/')
	if authEnd < 0 {
		authEnd = len(rest)
	}

	authority, err := parseAuthority(rest[:authEnd], u.scheme.DefaultPort())
	if err != nil {
		return URI{}, errors.Wrap(err, "parsing authority")
	}
	u.authority = authority

	if authEnd == len(rest) {
		// Without a '/' after the authority there is no path, query or fragment.
		return u, nil
	}

	u.rooted = true
	remainder := rest[authEnd:]

	if idx := fragmentIndex(remainder, opts.Fragment); idx >= 0 {
		u.fragment = unescapeLenient(remainder[idx+1:])
		u.hasFragment = true
		remainder = remainder[:idx]
	}

	if path, query, found := strings.Cut(remainder, "?"); found {
		u.query = parseQuery(query)
		remainder = path
	}

	u.path = splitPath(remainder)

	return u, nil
}

func fragmentIndex(s string, policy FragmentPolicy) int {
	if policy == FragmentFirstHash {
		return strings.IndexByte(s, '#')
	}
	return strings.LastIndexByte(s, '#')
}

func parseAuthority(raw string, defaultPort uint16) (Authority, error) {
	var authority Authority

	if idx := strings.LastIndexByte(raw, '@'); idx >= 0 {
		authority.UserInfo = unescapeLenient(raw[:idx])
		raw = raw[idx+1:]
	}

	host, port, err := splitHostPort(raw, defaultPort)
	if err != nil {
		return Authority{}, err
	}

	authority.Host = strings.ToLower(host)
	authority.Port = port

	return authority, nil
}

func splitHostPort(raw string, defaultPort uint16) (host string, port uint16, err error) {
	host, portPart := raw, ""
	if strings.HasPrefix(raw, "[") {
		// IP Literal, the colons inside brackets belong to the address.
		if idx := strings.LastIndexByte(raw, ']'); idx >= 0 {
			host, portPart = raw[:idx+1], strings.TrimPrefix(raw[idx+1:], ":")
		}
	} else if idx := strings.LastIndexByte(raw, ':'); idx >= 0 {
		host, portPart = raw[:idx], raw[idx+1:]
	}

	if portPart == "" {
		return host, defaultPort, nil
	}

	p, err := strconv.ParseUint(portPart, 10, 16)
	if err != nil {
		return "", 0, errors.Wrapf(ErrInvalidPort, "%q", portPart)
	}

	return host, uint16(p), nil
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}

	segments := strings.Split(path, "/")
	for idx, seg := range segments {
		segments[idx] = unescapeLenient(seg)
	}

	return segments
}

// parseQuery splits k=v pairs on '&'. Empty pairs are skipped and a repeated
// key keeps its last value.
func parseQuery(raw string) map[string]string {
	query := make(map[string]string)
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		query[unescapeLenient(key)] = unescapeLenient(value)
	}
	return query
}

// Set re-derives every field from raw. On error u is left untouched.
func (u *URI) Set(raw string) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func (u URI) Raw() string          { return u.raw }
func (u URI) Scheme() Scheme       { return u.scheme }
func (u URI) Opaque() string       { return u.opaque }
func (u URI) Authority() Authority { return u.authority }

// Path returns a copy of the path segments.
func (u URI) Path() []string { return slices.Clone(u.path) }

// Query returns a copy of the query pairs. It is never nil.
func (u URI) Query() map[string]string {
	if u.query == nil {
		return map[string]string{}
	}
	return maps.Clone(u.query)
}

func (u URI) QueryValue(key string) (string, bool) {
	v, ok := u.query[key]
	return v, ok
}

func (u URI) Fragment() (string, bool) { return u.fragment, u.hasFragment }

// HasPath reports whether a '/' followed the authority.
func (u URI) HasPath() bool { return u.rooted }

// Host returns the value of a Host header for this URI.
func (u URI) Host() string {
	return u.authority.HostPort(u.scheme.DefaultPort())
}

// RequestTarget renders the origin-form target: the path (at least "/") and the
// query. Query keys are sorted so the output is deterministic.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
func (u URI) RequestTarget() string {
	b := new(strings.Builder)

	b.WriteByte('/')
	for idx, seg := range u.path {
		if idx > 0 {
			b.WriteByte('/')
		}
		b.WriteString(escape(seg, encodeSegment))
	}

	if len(u.query) > 0 {
		b.WriteByte('?')
		for idx, key := range slices.Sorted(maps.Keys(u.query)) {
			if idx > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(key, encodeQueryComponent))
			b.WriteByte('=')
			b.WriteString(escape(u.query[key], encodeQueryComponent))
		}
	}

	return b.String()
}

// AbsoluteTarget renders the absolute-form used towards proxies: no user info
// and no fragment.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2
func (u URI) AbsoluteTarget() string {
	if !u.scheme.IsHTTP() {
		return u.raw
	}
	return u.scheme.String() + "://" + u.Host() + u.RequestTarget()
}

// String renders http and https URIs from their parts. Other URIs are
// returned exactly as they were parsed.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u URI) String() string {
	if !u.scheme.IsHTTP() {
		return u.raw
	}

	b := new(strings.Builder)
	b.WriteString(u.scheme.String())
	b.WriteString("://")
	if u.authority.UserInfo != "" {
		b.WriteString(u.authority.UserInfo)
		b.WriteByte('@')
	}
	b.WriteString(u.Host())

	if u.rooted {
		b.WriteString(u.RequestTarget())
	}

	if u.hasFragment {
		b.WriteByte('#')
		b.WriteString(escape(u.fragment, encodeFragment))
	}

	return b.String()
}
