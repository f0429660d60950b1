package resolver

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"

	"github.com/optimode/emailfinder/types"
)

// DNS sends plain wire-format queries to a single recursive server.
type DNS struct {
	server string
	client *dns.Client
}

func NewDNS(server string, timeout time.Duration) *DNS {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNS{server: server, client: &dns.Client{Timeout: timeout}}
}

func (d *DNS) LookupHost(ctx context.Context, host string) ([]string, error) {
	answer, err := d.exchange(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answer {
		if a, ok := rr.(*dns.A); ok {
			out = append(out, a.A.String())
		}
	}
	if len(out) == 0 {
		return nil, notFound(host)
	}
	return out, nil
}

func (d *DNS) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	answer, err := d.exchange(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var out []*net.MX
	for _, rr := range answer {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	if len(out) == 0 {
		return nil, notFound(name)
	}
	return out, nil
}

func (d *DNS) exchange(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	r, _, err := d.client.ExchangeContext(ctx, m, d.server)
	if err != nil {
		return nil, &types.TransportError{Op: "dns " + dns.TypeToString[qtype], Err: err}
	}
	switch r.Rcode {
	case dns.RcodeSuccess:
		return r.Answer, nil
	case dns.RcodeNameError:
		return nil, notFound(name)
	default:
		return nil, errors.Errorf("resolver: %s %s: rcode %s", dns.TypeToString[qtype], name, dns.RcodeToString[r.Rcode])
	}
}
