package check

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/types"
)

// MXLookup resolves MX records. (*dnscache.Cache).LookupMX satisfies it.
type MXLookup func(ctx context.Context, domain string) ([]*net.MX, error)

// DNSChecker verifies the existence of MX records. A failure here is a soft
// signal: the probe continues and only caps the resulting tier.
type DNSChecker struct {
	lookup MXLookup
}

func NewDNSChecker(lookup MXLookup) *DNSChecker {
	if lookup == nil {
		r := &net.Resolver{}
		lookup = r.LookupMX
	}
	return &DNSChecker{lookup: lookup}
}

func (c *DNSChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	level := types.LevelDNS

	if !email.Valid {
		return types.CheckResult{Level: level, Passed: false, Details: "skipped: invalid email", Reason: "bad-format"}
	}

	hosts, err := MXHosts(ctx, c.lookup, email.Domain)
	if err != nil {
		return types.CheckResult{
			Level:   level,
			Passed:  false,
			Details: fmt.Sprintf("MX lookup failed: %v", err),
			Reason:  "mx-missing",
		}
	}
	if len(hosts) == 0 {
		return types.CheckResult{Level: level, Passed: false, Details: "no MX records found", Reason: "mx-missing"}
	}

	return types.CheckResult{
		Level:   level,
		Passed:  true,
		Details: fmt.Sprintf("%d MX record(s) found", len(hosts)),
		MXHost:  hosts[0],
	}
}

// MXHosts returns the domain's MX hosts ordered by preference, without the
// trailing dot. A null MX ("." per RFC 7505) yields no hosts.
func MXHosts(ctx context.Context, lookup MXLookup, domain string) ([]string, error) {
	records, err := lookup(ctx, domain)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})
	hosts := make([]string, 0, len(records))
	for _, r := range records {
		if h := strings.TrimSuffix(r.Host, "."); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}
