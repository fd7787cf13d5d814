package pipe

import (
	"context"
	"sync"

	"httpwire/transport"

	"github.com/benbjohnson/clock"
)

type dialRequest struct {
	conn     transport.Conn
	accepted chan struct{}
}

// Network routes dials to listeners by destination address.
type Network struct {
	listeners map[string]*Listener
	clock     clock.Clock

	mu sync.Mutex
}

var _ transport.ConnDialer = (*Network)(nil)

func NewNetwork(clock clock.Clock) *Network {
	return &Network{
		listeners: make(map[string]*Listener),
		clock:     clock,
	}
}

func (n *Network) Dial(ctx context.Context, dst transport.Destination) (transport.Conn, error) {
	n.mu.Lock()
	listener, ok := n.listeners[dst.Addr()]
	n.mu.Unlock()

	if !ok {
		return nil, transport.ErrConnRefused
	}

	c1, c2 := Pipe("dialer", dst.Addr(), n.clock)

	req := dialRequest{
		conn:     c2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case <-req.accepted:
	}

	return c1, nil
}

func (n *Network) Listen(dst transport.Destination) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	addr := dst.Addr()
	if _, ok := n.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	l := &Listener{
		addr:     addr,
		network:  n,
		requests: make(chan dialRequest),
		closed:   make(chan struct{}),
	}
	n.listeners[addr] = l

	return l, nil
}

type Listener struct {
	addr    string
	network *Network

	requests chan dialRequest
	closed   chan struct{}
	once     sync.Once
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrConnListenerClosed
	case req := <-l.requests:
		req.accepted <- struct{}{}
		return req.conn, nil
	}
}

func (l *Listener) Close() error {
	err := transport.ErrConnListenerClosed
	l.once.Do(func() {
		close(l.closed)

		l.network.mu.Lock()
		delete(l.network.listeners, l.addr)
		l.network.mu.Unlock()

		err = nil
	})
	return err
}
