// Package resolver provides the A and MX lookups used by the finder:
// DNS-over-HTTPS JSON, plain DNS over UDP, and the system resolver.
package resolver

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/optimode/emailfinder/config"
)

// Resolver answers the two record types the pipeline needs.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// New builds the resolver selected by cfg.Mode.
func New(cfg config.DNSConfig, client *http.Client) (Resolver, error) {
	switch cfg.Mode {
	case "doh", "":
		return NewDoH(cfg.DoHEndpoint, client), nil
	case "udp":
		return NewDNS(cfg.Server, cfg.Timeout), nil
	case "system":
		return &net.Resolver{}, nil
	default:
		return nil, errors.Errorf("resolver: unknown mode %q", cfg.Mode)
	}
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}
