package http

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"

	"httpwire/application/http/status"
	"httpwire/application/util/rule"
	"httpwire/application/util/uri"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool `yaml:"allow_sole_lf"`

	// Folding decides how obsolete folded lines are joined.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
	Folding FoldPolicy `yaml:"folding"`

	// StrictFieldLines rejects a line in the header block that is not a field
	// instead of ignoring everything from it up to the empty line.
	StrictFieldLines bool `yaml:"strict_field_lines"`

	// CombineFieldValues joins repeated fields with ", ".
	// If false, the last value wins.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3
	CombineFieldValues bool `yaml:"combine_field_values"`

	// MaxStatusLineLength sets the limit of status line length.
	// It's not on the RFC but I think it's better to have it.
	MaxStatusLineLength uint `yaml:"max_status_line_length"`
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         false,
	Folding:             FoldConcat,
	StrictFieldLines:    false,
	CombineFieldValues:  false,
	MaxStatusLineLength: 0,
}

var (
	ErrMalformedStartLine = errors.New("start line is malformed")
	ErrStatusLineTooLong  = errors.New("status line length exceeds limit")
)

// ResponseParser turns a complete response held in memory into a [Response].
// It keeps no state between calls and may be shared between goroutines.
type ResponseParser struct {
	opts   DecodeOptions
	logger *slog.Logger
}

func NewResponseParser(opts DecodeOptions, logger *slog.Logger) *ResponseParser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ResponseParser{opts: opts, logger: logger}
}

var defaultResponseParser = NewResponseParser(DefaultDecodeOptions, nil)

// ParseResponse parses buf with [DefaultDecodeOptions].
func ParseResponse(buf []byte) (*Response, error) {
	return defaultResponseParser.Parse(buf)
}

// Parse runs three phases in order. The status line may be preceded by noise,
// which is skipped. The header block must end with an empty line. The rest of
// the buffer, bounded by Content-Length, is the body; it is decoded as JSON
// when Content-Type mentions json and kept as text if that fails.
//
// Only the first two phases can fail. The returned response never lacks a
// section.
func (p *ResponseParser) Parse(buf []byte) (*Response, error) {
	line, skipped, next, err := parseStatusLine(buf, p.opts)
	if err != nil {
		return nil, errors.Wrap(err, "parsing status line")
	}
	if skipped > 0 {
		p.logger.Debug("skipped bytes before status line", "skipped", skipped)
	}

	headers, next, err := ParseHeadersWithOptions(buf, next, len(buf), p.opts)
	if err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}

	r := &Response{
		Message:    Message{version: line.version, headers: headers},
		status:     line.status,
		rawVersion: line.rawVersion,
	}
	p.parseBody(r, buf[next:])

	return r, nil
}

func (p *ResponseParser) parseBody(r *Response, rest []byte) {
	body, incomplete := frameBody(r.headers, rest)
	r.incomplete = incomplete
	if len(body) == 0 {
		return
	}

	mediaType, _ := r.headers.GetText(headerContentType)
	r.content = Content{MediaType: mediaType, Body: bytes.Clone(body)}
	r.kind = BodyText

	if !strings.Contains(strings.ToLower(mediaType), "json") {
		return
	}

	var data any
	if err := json.Unmarshal(r.content.Body, &data); err != nil {
		p.logger.Debug("keeping malformed json body as text", "content-type", mediaType, "error", err)
		return
	}
	r.kind, r.data = BodyJSON, data
}

// frameBody bounds rest by Content-Length when there is a usable one.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func frameBody(h Headers, rest []byte) (body []byte, incomplete bool) {
	v, ok := h.Get(headerContentLength)
	if !ok {
		return rest, false
	}
	n, ok := v.Uint()
	if !ok {
		return rest, false
	}
	if uint64(len(rest)) < n {
		return rest, true
	}
	return rest[:n], false
}

type statusLine struct {
	version    Version
	rawVersion string
	status     status.Status
}

var versionPrefix = []byte("HTTP/")

// parseStatusLine finds the first line that starts with an HTTP-version and
// parses as a status line. It returns how many bytes before it were skipped
// and the offset just past its line terminator.
func parseStatusLine(buf []byte, opts DecodeOptions) (line statusLine, skipped, next int, err error) {
	for from := 0; from < len(buf); {
		idx := bytes.Index(buf[from:], versionPrefix)
		if idx < 0 {
			break
		}
		start := from + idx

		lineEnd, width := rule.FindCRLF(buf, start, opts.AllowSoleLF)
		if lineEnd < 0 {
			break
		}

		if opts.MaxStatusLineLength > 0 && uint(lineEnd-start) > opts.MaxStatusLineLength {
			return statusLine{}, 0, 0, ErrStatusLineTooLong
		}

		if parsed, ok := parseStatusLineText(string(buf[start:lineEnd])); ok {
			return parsed, start, lineEnd + width, nil
		}

		from = start + 1
	}

	return statusLine{}, 0, 0, ErrMalformedStartLine
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func parseStatusLineText(s string) (statusLine, bool) {
	parts := strings.SplitN(s, " ", 3)
	if len(parts) < 2 || !isVersionToken(parts[0]) {
		return statusLine{}, false
	}

	code := parts[1]
	if len(code) != 3 || !isDigits(code) {
		return statusLine{}, false
	}
	n, _ := strconv.ParseUint(code, 10, 16)

	// reason-phrase is optional.
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}

	// Versions we don't model are kept as they came.
	ver, _ := ParseVersion(parts[0])

	return statusLine{
		version:    ver,
		rawVersion: parts[0],
		status:     status.Status{Code: uint(n), ReasonPhrase: reason},
	}, true
}

// ResponseComplete reports whether buf holds a whole response. That is a
// status line, the header block and as many body bytes as Content-Length
// says. 204 and 304 responses have no body. Without Content-Length the body
// runs until the connection closes, so such a response is never complete.
func ResponseComplete(buf []byte, opts DecodeOptions) bool {
	line, _, next, err := parseStatusLine(buf, opts)
	if err != nil {
		return false
	}

	headers, next, err := ParseHeadersWithOptions(buf, next, len(buf), opts)
	if err != nil {
		return false
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.1
	switch line.status.Code {
	case status.NoContent.Code, status.NotModified.Code:
		return true
	}

	v, ok := headers.Get(headerContentLength)
	if !ok {
		return false
	}
	n, ok := v.Uint()
	return ok && uint64(len(buf)-next) >= n
}

// ParseRequest decodes a request held in buf. Targets other than the
// absolute-form are resolved against the Host header with the http scheme.
func ParseRequest(buf []byte, opts DecodeOptions) (*Request, error) {
	start := 0
	lineEnd, width := rule.FindCRLF(buf, start, opts.AllowSoleLF)
	// An empty line can be received before message.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
	for lineEnd == start {
		start = lineEnd + width
		lineEnd, width = rule.FindCRLF(buf, start, opts.AllowSoleLF)
	}
	if lineEnd < 0 {
		return nil, ErrMalformedStartLine
	}

	method, target, ver, err := parseRequestLine(string(buf[start:lineEnd]))
	if err != nil {
		return nil, errors.Wrap(err, "parsing request line")
	}

	headers, next, err := ParseHeadersWithOptions(buf, lineEnd+width, len(buf), opts)
	if err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}

	u, err := resolveTarget(target, headers)
	if err != nil {
		return nil, errors.Wrap(err, "resolving request target")
	}

	r := &Request{
		Message: Message{version: ver, headers: headers},
		method:  method,
		uri:     u,
	}

	if body, _ := frameBody(headers, buf[next:]); len(body) > 0 {
		mediaType, _ := headers.GetText(headerContentType)
		r.content = Content{MediaType: mediaType, Body: bytes.Clone(body)}
	}

	return r, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3
func parseRequestLine(line string) (Method, string, Version, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[1] == "" {
		return MethodUnknown, "", VersionUnknown, errors.Wrapf(ErrMalformedStartLine, "%q", line)
	}

	method, err := ParseMethod(parts[0])
	if err != nil {
		return MethodUnknown, "", VersionUnknown, err
	}

	ver, err := ParseVersion(parts[2])
	if err != nil {
		return MethodUnknown, "", VersionUnknown, err
	}

	return method, parts[1], ver, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.3
func resolveTarget(target string, h Headers) (uri.URI, error) {
	if u, err := uri.Parse(target); err == nil && u.Scheme().IsHTTP() {
		return u, nil
	}

	var raw string
	switch {
	case strings.HasPrefix(target, "/"), target == "*":
		host, ok := h.GetText(headerHost)
		if !ok {
			return uri.URI{}, errors.New("request has no Host header")
		}
		raw = "http://" + host
		if target != "*" {
			raw += target
		}
	default:
		// authority-form
		raw = "http://" + target
	}

	return uri.Parse(raw)
}
