package transport

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")
	ErrConnRefused        = errors.New("connection refused")
	ErrNetUnreachable     = errors.New("network is unreachable")
	ErrAddrAlreadyInUse   = errors.New("address already in use")
)

type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, dst Destination) (Conn, error)
}

// netConn adapts a [net.Conn] to [Conn], translating the net package's
// closed and deadline errors into this package's sentinels.
type netConn struct {
	c net.Conn
}

var _ Conn = (*netConn)(nil)

// WrapConn adapts c to [Conn].
func WrapConn(c net.Conn) Conn { return &netConn{c: c} }

func (nc *netConn) Read(p []byte) (int, error) {
	n, err := nc.c.Read(p)
	return n, translateNetErr(err)
}

func (nc *netConn) Write(p []byte) (int, error) {
	n, err := nc.c.Write(p)
	return n, translateNetErr(err)
}

func (nc *netConn) Close() error {
	if err := nc.c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (nc *netConn) LocalAddr() net.Addr  { return nc.c.LocalAddr() }
func (nc *netConn) RemoteAddr() net.Addr { return nc.c.RemoteAddr() }

func (nc *netConn) SetReadDeadLine(t time.Time)  { _ = nc.c.SetReadDeadline(t) }
func (nc *netConn) SetWriteDeadLine(t time.Time) { _ = nc.c.SetWriteDeadline(t) }

func translateNetErr(err error) error {
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return errors.Wrap(ErrConnClosed, err.Error())
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrap(ErrDeadLineExceeded, err.Error())
	}
	return err
}
