// Package blocklist recognizes domains that can never be a company's own
// website, such as social networks and business directories.
package blocklist

import "strings"

// List is an immutable set of blocked registrable domains.
type List struct {
	set map[string]struct{}
}

// New returns the embedded list extended with extra domains.
func New(extra ...string) *List {
	set := make(map[string]struct{}, len(defaultSet)+len(extra))
	for d := range defaultSet {
		set[d] = struct{}{}
	}
	for _, d := range extra {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			set[d] = struct{}{}
		}
	}
	return &List{set: set}
}

// Contains reports whether domain or any parent domain is blocked,
// so "en.wikipedia.org" matches "wikipedia.org".
func (l *List) Contains(domain string) bool {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	for domain != "" {
		if _, ok := l.set[domain]; ok {
			return true
		}
		_, rest, found := strings.Cut(domain, ".")
		if !found {
			return false
		}
		domain = rest
	}
	return false
}
