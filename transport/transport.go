package transport

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// Destination is where an encoded request is delivered.
type Destination struct {
	Scheme string
	Host   string
	Port   uint16
}

// Secure reports whether the destination requires TLS.
func (d Destination) Secure() bool { return strings.EqualFold(d.Scheme, "https") }

// Addr returns host:port, bracketing IPv6 literals.
func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, strconv.FormatUint(uint64(d.Port), 10))
}

func (d Destination) String() string { return d.Scheme + "://" + d.Addr() }

// Transport moves one encoded request to dst and returns the raw response bytes.
type Transport interface {
	RoundTrip(ctx context.Context, dst Destination, request []byte) ([]byte, error)
}

type RoundTripFunc func(ctx context.Context, dst Destination, request []byte) ([]byte, error)

func (f RoundTripFunc) RoundTrip(ctx context.Context, dst Destination, request []byte) ([]byte, error) {
	return f(ctx, dst, request)
}

// Resolver maps a host name to addresses.
type Resolver interface {
	LookupIP(ctx context.Context, host string) ([]netip.Addr, error)
}

// Context holds what transports share for the lifetime of a program.
// It is created once and handed to every dialer and transport built from it.
type Context struct {
	TLSConfig   *tls.Config
	Resolver    Resolver // nil means the system resolver through net.Dialer.
	Logger      *slog.Logger
	Clock       clock.Clock
	DialTimeout time.Duration
}

func NewContext() *Context {
	return &Context{
		TLSConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		Logger:      slog.New(slog.DiscardHandler),
		Clock:       clock.New(),
		DialTimeout: 10 * time.Second,
	}
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Context) clock() clock.Clock {
	if c == nil || c.Clock == nil {
		return clock.New()
	}
	return c.Clock
}

func (c *Context) tlsConfig(serverName string) *tls.Config {
	var cfg *tls.Config
	if c != nil && c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	return cfg
}
