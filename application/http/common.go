package http

import (
	"strings"

	"httpwire/application/util/rule"

	"github.com/pkg/errors"
)

// ErrUnknownToken is returned when a method or version token is not one of
// the known values. Unknown tokens are never coerced to a default.
var ErrUnknownToken = errors.New("unknown token")

type Version uint8

const (
	VersionUnknown Version = iota
	Version10
	Version11
)

var versionNames = [...]string{
	VersionUnknown: "",
	Version10:      "HTTP/1.0",
	Version11:      "HTTP/1.1",
}

func (ver Version) String() string {
	if int(ver) >= len(versionNames) {
		return ""
	}
	return versionNames[ver]
}

func (ver Version) valid() bool { return ver == Version10 || ver == Version11 }

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(s string) (Version, error) {
	for ver, name := range versionNames {
		if name != "" && name == s {
			return Version(ver), nil
		}
	}
	return VersionUnknown, errors.Wrapf(ErrUnknownToken, "version %q", s)
}

// isVersionToken reports whether s has the shape of an HTTP-version, including
// ones this package does not model such as "HTTP/2".
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.3
func isVersionToken(s string) bool {
	rest, ok := strings.CutPrefix(s, "HTTP/")
	if !ok {
		return false
	}

	major, minor, hasMinor := strings.Cut(rest, ".")
	if !isDigits(major) {
		return false
	}

	return !hasMinor || isDigits(minor)
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for idx := 0; idx < len(s); idx++ {
		if !rule.IsDigit(s[idx]) {
			return false
		}
	}
	return true
}

type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodConnect
	MethodOptions
	MethodTrace
	MethodPatch
)

var methodNames = [...]string{
	MethodUnknown: "",
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodConnect: "CONNECT",
	MethodOptions: "OPTIONS",
	MethodTrace:   "TRACE",
	MethodPatch:   "PATCH",
}

func (m Method) String() string {
	if int(m) >= len(methodNames) {
		return ""
	}
	return methodNames[m]
}

func (m Method) valid() bool { return m != MethodUnknown && int(m) < len(methodNames) }

// ParseMethod looks up a method token. Method names are case-sensitive.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.1-5
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name != "" && name == s {
			return Method(m), nil
		}
	}
	return MethodUnknown, errors.Wrapf(ErrUnknownToken, "method %q", s)
}
