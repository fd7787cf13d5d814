package http

import (
	"bytes"
	"strconv"

	"github.com/indigo-web/utils/strcomp"
	"github.com/pkg/errors"
)

var (
	ErrInconsistentContent   = errors.New("media type and body must be given together")
	ErrContentLengthMismatch = errors.New("Content-Length does not match the body")
)

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"
	headerHost          = "Host"

	mediaTypeJSON = "application/json"
)

// Content is the body of a message and the media type it was set with.
type Content struct {
	MediaType string
	Body      []byte
}

func (c Content) Len() int       { return len(c.Body) }
func (c Content) IsZero() bool   { return c.MediaType == "" && len(c.Body) == 0 }
func (c Content) Clone() Content { return Content{MediaType: c.MediaType, Body: bytes.Clone(c.Body)} }

// derived marks headers that were filled in from other state rather than set
// by the caller. Derived headers follow that state; explicit ones never change.
type derived uint8

const (
	derivedContentType derived = 1 << iota
	derivedContentLength
	derivedHost
)

func derivedFlag(name string) derived {
	switch {
	case strcomp.EqualFold(name, headerContentType):
		return derivedContentType
	case strcomp.EqualFold(name, headerContentLength):
		return derivedContentLength
	case strcomp.EqualFold(name, headerHost):
		return derivedHost
	}
	return 0
}

// Message holds what requests and responses share. It owns its headers and
// content; accessors hand out copies.
type Message struct {
	version Version
	headers Headers
	content Content
	derived derived
}

func (m *Message) Version() Version { return m.version }

func (m *Message) Headers() Headers { return m.headers.Clone() }

func (m *Message) Header(name string) (Value, bool) { return m.headers.Get(name) }

func (m *Message) Content() Content { return m.content.Clone() }

func (m *Message) SetVersion(ver Version) error {
	if !ver.valid() {
		return errors.Wrapf(ErrUnknownToken, "version %d", ver)
	}
	m.version = ver
	return nil
}

func (m *Message) SetVersionString(s string) error {
	ver, err := ParseVersion(s)
	if err != nil {
		return err
	}
	m.version = ver
	return nil
}

// SetHeader sets a field explicitly. Later content changes never touch an
// explicit Content-Type or Content-Length, and an explicit Content-Length must
// always agree with the current body.
func (m *Message) SetHeader(name string, value Value) error {
	if err := (Field{Name: name, Value: value}).validate(); err != nil {
		return err
	}

	flag := derivedFlag(name)
	if flag == derivedContentLength {
		n, err := contentLengthOf(value)
		if err != nil {
			return err
		}
		if n != uint64(m.content.Len()) {
			return errors.Wrapf(ErrContentLengthMismatch, "%d for a body of %d bytes", n, m.content.Len())
		}
		value = UintValue(n)
	}

	m.headers.Set(name, value)
	m.derived &^= flag

	return nil
}

func (m *Message) SetHeaderString(name, value string) error {
	return m.SetHeader(name, StringValue(value))
}

// DelHeader removes a field. Removing Content-Length while there is a body
// brings back the derived value.
func (m *Message) DelHeader(name string) {
	m.headers.Del(name)
	flag := derivedFlag(name)
	m.derived &^= flag

	if flag == derivedContentLength && !m.content.IsZero() {
		m.headers.Set(headerContentLength, UintValue(uint64(m.content.Len())))
		m.derived |= derivedContentLength
	}
}

// SetContent sets the body together with its media type. Giving both empty
// does nothing and giving only one of them is rejected.
//
// Content-Type is added only when absent; an existing one is never
// overwritten. Content-Length follows the body unless it was set explicitly,
// in which case it must match. Nothing changes when an error is returned.
func (m *Message) SetContent(mediaType string, body []byte) error {
	switch {
	case mediaType == "" && len(body) == 0:
		return nil
	case mediaType == "" || len(body) == 0:
		return errors.Wrapf(ErrInconsistentContent, "media type %q with a body of %d bytes", mediaType, len(body))
	}

	if err := (Field{Name: headerContentType, Value: StringValue(mediaType)}).validate(); err != nil {
		return err
	}

	length := uint64(len(body))
	if m.derived&derivedContentLength == 0 {
		if v, ok := m.headers.Get(headerContentLength); ok {
			if n, _ := contentLengthOf(v); n != length {
				return errors.Wrapf(ErrContentLengthMismatch, "%s for a body of %d bytes", v.Text(), length)
			}
		}
	}

	m.content = Content{MediaType: mediaType, Body: bytes.Clone(body)}

	if m.headers.SetIfAbsent(headerContentType, StringValue(mediaType)) {
		m.derived |= derivedContentType
	}
	if m.derived&derivedContentLength != 0 || !m.headers.Has(headerContentLength) {
		m.headers.Set(headerContentLength, UintValue(length))
		m.derived |= derivedContentLength
	}

	return nil
}

// SetJSON serializes v and sets it as the content. Content-Type defaults to
// application/json.
func (m *Message) SetJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "serializing content")
	}
	return m.SetContent(mediaTypeJSON, b)
}

// ClearContent drops the body, Content-Length and a derived Content-Type.
func (m *Message) ClearContent() {
	m.content = Content{}

	if m.derived&derivedContentType != 0 {
		m.headers.Del(headerContentType)
	}
	m.headers.Del(headerContentLength)
	m.derived &^= derivedContentType | derivedContentLength
}

func (m *Message) clone() Message {
	return Message{
		version: m.version,
		headers: m.headers.Clone(),
		content: m.content.Clone(),
		derived: m.derived,
	}
}

func contentLengthOf(v Value) (uint64, error) {
	if n, ok := v.Uint(); ok {
		return n, nil
	}
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6
	n, err := strconv.ParseUint(v.Text(), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidField, "Content-Length %q", v.Text())
	}
	return n, nil
}
