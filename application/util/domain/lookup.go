package domain

import (
	"context"
	"maps"
	"net"
	"net/netip"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type MapLookuper struct {
	set map[string][]netip.Addr
	mu  sync.RWMutex
}

var _ Lookuper = (*MapLookuper)(nil)

func NewMapLookuper(set map[string][]netip.Addr) *MapLookuper {
	if set == nil {
		set = make(map[string][]netip.Addr)
	}
	return &MapLookuper{set: maps.Clone(set)}
}

func (m *MapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	if addr, err := netip.ParseAddr(domain); err == nil {
		return []netip.Addr{addr}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	addrs, ok := m.set[domain]
	if !ok {
		return nil, errors.Wrapf(ErrDomainNotFound, "looking up %q", domain)
	}
	return slices.Clone(addrs), nil
}

func (m *MapLookuper) Set(domain string, addrs ...netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.mu.Lock()
	m.set[domain] = slices.Clone(addrs)
	m.mu.Unlock()
}

func (m *MapLookuper) Del(domain string) {
	m.mu.Lock()
	delete(m.set, domain)
	m.mu.Unlock()
}

// NetLookuper resolves through the system resolver.
type NetLookuper struct {
	Resolver *net.Resolver
}

var _ Lookuper = NetLookuper{}

func (n NetLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	r := n.Resolver
	if r == nil {
		r = net.DefaultResolver
	}

	addrs, err := r.LookupNetIP(ctx, "ip", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrapf(ErrDomainNotFound, "looking up %q", domain)
		}
		return nil, errors.Wrapf(err, "looking up %q", domain)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrapf(ErrDomainNotFound, "looking up %q", domain)
	}

	for i, addr := range addrs {
		addrs[i] = addr.Unmap()
	}
	return addrs, nil
}
