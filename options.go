package emailfinder

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Resolver answers the A and MX lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// SessionFactory opens the page session for one request.
type SessionFactory func(ctx context.Context, headless bool) (Session, error)

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger. Each request adds request_id and company fields.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Finder) { f.log = log }
}

// WithResolver replaces the configured DNS backend.
func WithResolver(r Resolver) Option {
	return func(f *Finder) { f.resolver = r }
}

// WithSessionFactory replaces the configured page session.
func WithSessionFactory(fn SessionFactory) Option {
	return func(f *Finder) { f.newSession = fn }
}

// WithSearcher replaces the configured search provider. The searcher is
// shared between requests and must be safe for concurrent use.
func WithSearcher(s Searcher) Option {
	return func(f *Finder) { f.searcher = s }
}

// WithSMTPDial replaces the dialer used for SMTP probes.
func WithSMTPDial(dial DialFunc) Option {
	return func(f *Finder) { f.dial = dial }
}

// WithSleep replaces the sleep used for fetch backoff and the pause
// between candidate probes.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Finder) { f.sleep = sleep }
}

// FindOption configures a single request.
type FindOption func(*findOptions)

type findOptions struct {
	domain   string
	headless *bool
	progress func(done, total int, o VerificationOutcome)
}

// WithDomain skips domain resolution and uses domain for the company.
func WithDomain(domain string) FindOption {
	return func(o *findOptions) { o.domain = domain }
}

// WithHeadless overrides fetch.headless for this request.
func WithHeadless(headless bool) FindOption {
	return func(o *findOptions) { o.headless = &headless }
}

// WithProgress is called after every verified candidate.
func WithProgress(fn func(done, total int, o VerificationOutcome)) FindOption {
	return func(o *findOptions) { o.progress = fn }
}
