package http

import (
	"httpwire/application/http/status"

	"github.com/indigo-web/utils/uf"
	"github.com/pkg/errors"
)

// BodyKind is how the parser classified a response body.
type BodyKind uint8

const (
	BodyNone BodyKind = iota
	BodyText
	BodyJSON
)

type Response struct {
	Message

	status     status.Status
	rawVersion string

	kind       BodyKind
	data       any
	incomplete bool

	// Set only for a response standing in for a transport failure.
	err error
}

func NewResponse(st status.Status) *Response {
	return &Response{
		Message:    Message{version: Version11},
		status:     st,
		rawVersion: Version11.String(),
	}
}

// NewTransportFailure returns the response used in place of a real one when
// the transport could not produce any bytes. It carries no status, so it is
// never successful.
func NewTransportFailure(err error) *Response {
	return &Response{err: err}
}

func (r *Response) Status() status.Status { return r.status }
func (r *Response) StatusCode() uint      { return r.status.Code }
func (r *Response) Reason() string        { return r.status.ReasonPhrase }

// RawVersion is the version token as received, which may be one that
// [Version] does not model such as "HTTP/2".
func (r *Response) RawVersion() string { return r.rawVersion }

// Success reports whether a status in the open interval (99, 400) was received.
func (r *Response) Success() bool { return r.err == nil && r.status.Success() }

// Err returns the transport error for a response built by [NewTransportFailure].
func (r *Response) Err() error { return r.err }

// Incomplete reports whether the buffer ended before Content-Length bytes of
// body were available.
func (r *Response) Incomplete() bool { return r.incomplete }

func (r *Response) BodyKind() BodyKind { return r.kind }

// Text returns the body as text without copying it.
func (r *Response) Text() string { return uf.B2S(r.content.Body) }

// JSON returns the decoded body when it was classified as JSON.
func (r *Response) JSON() (any, bool) { return r.data, r.kind == BodyJSON }

// Decode unmarshals the body into v regardless of its classification.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.content.Body, v); err != nil {
		return errors.Wrap(err, "decoding body")
	}
	return nil
}
