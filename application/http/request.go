package http

import (
	"httpwire/application/util/uri"

	"github.com/pkg/errors"
)

var ErrUnsupportedScheme = errors.New("request URI must use http or https")

// Request is built with the setters below. Every setter either applies fully
// or returns an error and leaves the request unchanged.
type Request struct {
	Message

	method Method
	uri    uri.URI
}

// NewRequest creates an HTTP/1.1 request. The Host header follows the URI
// until it is set explicitly.
func NewRequest(method Method, rawURI string) (*Request, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return nil, errors.Wrap(err, "parsing uri")
	}
	return NewRequestURI(method, u)
}

// NewRequestURI is [NewRequest] for an already parsed URI.
func NewRequestURI(method Method, u uri.URI) (*Request, error) {
	r := &Request{Message: Message{version: Version11}}
	if err := r.SetMethod(method); err != nil {
		return nil, err
	}
	if err := r.SetParsedURI(u); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) Method() Method { return r.method }
func (r *Request) URI() uri.URI   { return r.uri }

func (r *Request) SetMethod(m Method) error {
	if !m.valid() {
		return errors.Wrapf(ErrUnknownToken, "method %d", m)
	}
	r.method = m
	return nil
}

func (r *Request) SetMethodString(s string) error {
	m, err := ParseMethod(s)
	if err != nil {
		return err
	}
	r.method = m
	return nil
}

// SetURI parses raw with [uri.DefaultParseOptions]; see [Request.SetParsedURI].
func (r *Request) SetURI(raw string) error {
	u, err := uri.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "parsing uri")
	}
	return r.SetParsedURI(u)
}

// SetParsedURI replaces the target URI as a whole and refreshes a derived
// Host header.
func (r *Request) SetParsedURI(u uri.URI) error {
	if !u.Scheme().IsHTTP() {
		return errors.Wrapf(ErrUnsupportedScheme, "%q", u.Raw())
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-7.2
	host := StringValue(u.Host())
	if err := (Field{Name: headerHost, Value: host}).validate(); err != nil {
		return err
	}

	r.uri = u
	if r.derived&derivedHost != 0 || !r.headers.Has(headerHost) {
		r.headers.Set(headerHost, host)
		r.derived |= derivedHost
	}

	return nil
}

// Clone returns a deep copy that can be changed independently.
func (r *Request) Clone() *Request {
	return &Request{Message: r.Message.clone(), method: r.method, uri: r.uri}
}
