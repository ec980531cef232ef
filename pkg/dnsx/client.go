// Package dnsx wraps DNS lookups behind a narrow interface so the resolver
// and verifier can be tested without network access.
package dnsx

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// MX is a single mail-exchange record.
type MX struct {
	Host string
	Pref uint16
}

// Client performs DNS lookups. An empty MX result with a nil error means the
// domain has no mail-exchange records; errors are reserved for resolver
// failures (timeout, unreachable server).
type Client interface {
	// LookupMX returns the domain's MX hosts sorted by preference,
	// lowest (most preferred) first.
	LookupMX(ctx context.Context, domain string) ([]MX, error)

	// HasAddr reports whether the domain has at least one A or AAAA record.
	HasAddr(ctx context.Context, domain string) (bool, error)
}

// Option configures the client.
type Option func(*netClient)

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *netClient) {
		c.timeout = d
	}
}

// WithResolver overrides the underlying net.Resolver.
func WithResolver(r *net.Resolver) Option {
	return func(c *netClient) {
		c.resolver = r
	}
}

type netClient struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewClient creates a DNS client backed by the system resolver.
func NewClient(opts ...Option) Client {
	c := &netClient{
		resolver: net.DefaultResolver,
		timeout:  5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *netClient) LookupMX(ctx context.Context, domain string) ([]MX, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	records, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "dnsx: lookup mx %s", domain)
	}

	mxs := make([]MX, 0, len(records))
	for _, r := range records {
		mxs = append(mxs, MX{
			Host: strings.TrimSuffix(r.Host, "."),
			Pref: r.Pref,
		})
	}
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	return mxs, nil
}

func (c *netClient) HasAddr(ctx context.Context, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupHost(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "dnsx: lookup host %s", domain)
	}
	return len(addrs) > 0, nil
}

// isNotFound distinguishes "no such record" from resolver failure.
func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
