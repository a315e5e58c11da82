package reactor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"fortio.org/safecast"
)

// ErrNoAddress is returned by Resolve when a lookup succeeds with no usable address.
var ErrNoAddress = errors.New("reactor: no address")

// Resolve looks host and service up on a helper goroutine. Cancelling the request
// cancels the lookup context; the callback is then never invoked.
func (l *Loop) Resolve(host, service string, cb func([]netip.AddrPort, error)) Request {
	req, ctx := newRequest(l.ctx)
	l.active++
	go func() {
		addrs, err := l.lookup(ctx, host, service)
		l.complete(req, func() { cb(addrs, err) }, nil)
	}()
	return req
}

func (l *Loop) lookup(ctx context.Context, host, service string) ([]netip.AddrPort, error) {
	port := uint16(0)
	if service != "" {
		p, err := l.resolver.LookupPort(ctx, "tcp", service)
		if err != nil {
			return nil, err
		}
		port, err = safecast.Conv[uint16](p)
		if err != nil {
			return nil, fmt.Errorf("port %q: %w", service, err)
		}
	}
	if host == "" {
		host = "localhost"
	}
	ips, err := l.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%s: %w", host, ErrNoAddress)
		}
		return nil, err
	}
	out := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		out = append(out, netip.AddrPortFrom(ip.Unmap(), port))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", host, ErrNoAddress)
	}
	return out, nil
}
