package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// Code classifies a transport failure.
type Code uint8

const (
	CodeUnknown Code = iota
	DNSFailure
	ConnectFailure
	ConnectionRefused
	TLSHandshakeFailure
	WriteFailure
	ReadFailure
	ConnectionClosed
	Timeout
)

var codeNames = [...]string{
	CodeUnknown:         "unknown",
	DNSFailure:          "dns failure",
	ConnectFailure:      "connect failure",
	ConnectionRefused:   "connection refused",
	TLSHandshakeFailure: "tls handshake failure",
	WriteFailure:        "write failure",
	ReadFailure:         "read failure",
	ConnectionClosed:    "connection closed",
	Timeout:             "timeout",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", c)
}

type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Code.String()
	}
	return e.Op + ": " + e.Code.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// classify wraps err into an *Error, using fallback when err carries no
// more specific signal. Errors that are already classified pass through.
func classify(op string, fallback Code, err error) error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return err
	}

	return &Error{Code: codeFor(fallback, err), Op: op, Err: err}
}

func codeFor(fallback Code, err error) Code {
	var (
		dnsErr *net.DNSError
		netErr net.Error
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrDeadLineExceeded):
		return Timeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return Timeout
		}
		return DNSFailure
	case errors.Is(err, ErrConnRefused),
		errors.Is(err, syscall.ECONNREFUSED):
		return ConnectionRefused
	case errors.Is(err, ErrNetUnreachable),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH):
		return ConnectFailure
	case errors.Is(err, ErrConnClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return ConnectionClosed
	case errors.As(err, &netErr) && netErr.Timeout():
		return Timeout
	}
	return fallback
}
