package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"

	"github.com/pkg/errors"
)

// NetDialer dials TCP, upgrading to TLS for secure destinations.
type NetDialer struct {
	tc     *Context
	dialer net.Dialer
}

var _ ConnDialer = (*NetDialer)(nil)

func NewNetDialer(tc *Context) *NetDialer {
	d := &NetDialer{tc: tc}
	if tc != nil {
		d.dialer.Timeout = tc.DialTimeout
	}
	return d
}

func (d *NetDialer) Dial(ctx context.Context, dst Destination) (Conn, error) {
	addrs, err := d.resolve(ctx, dst)
	if err != nil {
		return nil, err
	}

	var conn net.Conn
	for _, addr := range addrs {
		conn, err = d.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		d.tc.logger().Debug("dial attempt failed", "addr", addr, "error", err)
	}
	if err != nil {
		return nil, classify("dial", ConnectFailure, err)
	}

	if !dst.Secure() {
		return WrapConn(conn), nil
	}

	tlsConn := tls.Client(conn, d.tc.tlsConfig(dst.Host))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()

		code := TLSHandshakeFailure
		if ctx.Err() != nil {
			code = Timeout
		}
		return nil, &Error{Code: code, Op: "handshake", Err: err}
	}

	return WrapConn(tlsConn), nil
}

// resolve returns candidate host:port pairs for dst. Without a resolver the
// host is left to net.Dialer.
func (d *NetDialer) resolve(ctx context.Context, dst Destination) ([]string, error) {
	if d.tc == nil || d.tc.Resolver == nil {
		return []string{dst.Addr()}, nil
	}
	if addr, err := netip.ParseAddr(dst.Host); err == nil {
		return []string{netip.AddrPortFrom(addr, dst.Port).String()}, nil
	}

	ips, err := d.tc.Resolver.LookupIP(ctx, dst.Host)
	if err != nil {
		code := DNSFailure
		if ctx.Err() != nil {
			code = Timeout
		}
		return nil, &Error{Code: code, Op: "lookup", Err: err}
	}
	if len(ips) == 0 {
		return nil, &Error{Code: DNSFailure, Op: "lookup", Err: errors.Errorf("no addresses for %q", dst.Host)}
	}

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, netip.AddrPortFrom(ip, dst.Port).String())
	}
	return addrs, nil
}
