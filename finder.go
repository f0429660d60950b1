package emailfinder

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/config"
	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/internal/logging"
	"github.com/optimode/emailfinder/internal/resolver"
	"github.com/optimode/emailfinder/internal/smtpprobe"
	"github.com/optimode/emailfinder/types"
)

// Finder holds the immutable configuration and the backends shared by all
// requests. Every request builds its own pipeline (page session, DNS
// cache, fetcher) and tears it down before returning, so a Finder is safe
// for concurrent use.
type Finder struct {
	cfg config.Config
	err error // configuration error, returned by every request

	log        logrus.FieldLogger
	resolver   Resolver
	searcher   Searcher
	newSession SessionFactory
	dial       DialFunc
	sleep      func(context.Context, time.Duration) error

	prober  *smtpprobe.Client
	domains *check.DomainChecker
}

// New creates a Finder from a configuration snapshot. The configuration is
// deep-copied; later changes to cfg have no effect. An invalid
// configuration is reported by the first request.
func New(cfg config.Config, opts ...Option) *Finder {
	f := &Finder{
		cfg:     cfg.Clone(),
		sleep:   fetch.Sleep,
		domains: check.NewDomainChecker(check.DomainConfig{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logging.New(f.cfg.Log, os.Stderr)
	}
	if f.err = f.cfg.Validate(); f.err != nil {
		return f
	}

	if f.resolver == nil {
		r, err := resolver.New(f.cfg.DNS, &http.Client{Timeout: f.cfg.DNS.Timeout})
		if err != nil {
			f.err = err
			return f
		}
		f.resolver = r
	}

	dial := f.dial
	if dial == nil && f.cfg.SMTP.SOCKS5 != "" {
		dial = smtpprobe.SOCKS5(f.cfg.SMTP.SOCKS5)
	}
	f.prober = smtpprobe.New(smtpprobe.Config{
		HeloDomain:     f.cfg.SMTP.HeloDomain,
		MailFrom:       f.cfg.SMTP.MailFrom,
		ConnectTimeout: f.cfg.SMTP.ConnectTimeout,
		CommandTimeout: f.cfg.SMTP.CommandTimeout,
		Port:           f.cfg.SMTP.Port,
		StartTLS:       f.cfg.SMTP.StartTLS,
		TLSVerify:      f.cfg.SMTP.TLSVerify,
		Dial:           dial,
	})
	return f
}

// Config returns a copy of the Finder's configuration.
func (f *Finder) Config() config.Config {
	return f.cfg.Clone()
}

// Err reports the configuration error found by New, if any.
func (f *Finder) Err() error {
	return f.err
}

// Request is one person to search for.
type Request struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Company      string   `json:"company"`
	ExtraDomains []string `json:"additional_domains,omitempty"`
}

// Response is the outcome of one request.
type Response struct {
	Profile Profile  `json:"profile"`
	Results []Result `json:"emails"`
	// Err is only set by FindMany.
	Err error `json:"-"`
}

// ExtractProfile validates the input and resolves the company domain.
// Use it to fail fast before the slower verification phase.
func (f *Finder) ExtractProfile(ctx context.Context, first, last, company string, opts ...FindOption) (Profile, error) {
	if f.err != nil {
		return Profile{}, f.err
	}
	if err := validateRequest(first, last, company); err != nil {
		return Profile{}, err
	}
	o := collect(opts)
	domain, err := f.normalizeDomain(o.domain)
	if err != nil {
		return Profile{}, err
	}

	p, err := f.newPipeline(ctx, company, o)
	if err != nil {
		return Profile{}, err
	}
	defer p.close()
	return p.profile(ctx, first, last, company, domain), nil
}

// FindEmails returns the verified candidates for one person, best first.
// Only input and configuration problems are returned as errors; network
// trouble lowers confidence instead. On cancellation the results verified
// so far are returned together with ctx.Err().
func (f *Finder) FindEmails(ctx context.Context, first, last, company string, extraDomains []string, opts ...FindOption) ([]Result, error) {
	resp, err := f.Find(ctx, Request{FirstName: first, LastName: last, Company: company, ExtraDomains: extraDomains}, opts...)
	return resp.Results, err
}

// FindForProfile skips profile extraction and searches for a profile the
// caller already built. CompanyDomain must be set.
func (f *Finder) FindForProfile(ctx context.Context, p Profile, extraDomains []string, opts ...FindOption) ([]Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	domain, err := f.normalizeDomain(p.CompanyDomain)
	if err != nil {
		return nil, err
	}
	if domain == "" {
		return nil, &types.InputError{Field: "company_domain", Err: ErrMissingField}
	}
	p.CompanyDomain = domain
	extras, err := f.normalizeExtras(extraDomains)
	if err != nil {
		return nil, err
	}

	o := collect(opts)
	pl, err := f.newPipeline(ctx, p.Company, o)
	if err != nil {
		return nil, err
	}
	defer pl.close()
	return pl.find(ctx, p, extras, o.progress)
}

// Find runs the whole pipeline for one request.
func (f *Finder) Find(ctx context.Context, req Request, opts ...FindOption) (Response, error) {
	if f.err != nil {
		return Response{}, f.err
	}
	if err := validateRequest(req.FirstName, req.LastName, req.Company); err != nil {
		return Response{}, err
	}
	o := collect(opts)
	domain, err := f.normalizeDomain(o.domain)
	if err != nil {
		return Response{}, err
	}
	extras, err := f.normalizeExtras(req.ExtraDomains)
	if err != nil {
		return Response{}, err
	}

	p, err := f.newPipeline(ctx, req.Company, o)
	if err != nil {
		return Response{}, err
	}
	defer p.close()

	profile := p.profile(ctx, req.FirstName, req.LastName, req.Company, domain)
	results, err := p.find(ctx, profile, extras, o.progress)
	return Response{Profile: profile, Results: results}, err
}

// FindMany runs independent requests concurrently with at most workers in
// flight. The response order matches the input order; per-request errors
// are reported in Response.Err.
func (f *Finder) FindMany(ctx context.Context, reqs []Request, workers int, opts ...FindOption) []Response {
	if workers <= 0 {
		workers = 4
	}
	out := make([]Response, len(reqs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := f.Find(ctx, req, opts...)
			resp.Err = err
			out[i] = resp
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func collect(opts []FindOption) findOptions {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateRequest(first, last, company string) error {
	switch {
	case strings.TrimSpace(first) == "":
		return &types.InputError{Field: "first_name", Err: ErrMissingField}
	case strings.TrimSpace(last) == "":
		return &types.InputError{Field: "last_name", Err: ErrMissingField}
	case strings.TrimSpace(company) == "":
		return &types.InputError{Field: "company", Err: ErrMissingField}
	}
	return nil
}

// normalizeDomain returns the ASCII form of a caller-supplied domain, or
// "" for an empty one.
func (f *Finder) normalizeDomain(d string) (string, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return "", nil
	}
	r := f.domains.CheckDomain(d)
	if !r.Passed {
		return "", &types.InputError{Field: "domain", Value: d, Err: errors.Wrap(ErrInvalidDomain, r.Details)}
	}
	return r.Details, nil
}

// normalizeExtras trims, lower-cases, validates and dedupes extra domains.
// A likely typo of a major mail provider is only logged.
func (f *Finder) normalizeExtras(domains []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		r := f.domains.CheckDomain(d)
		if !r.Passed {
			return nil, &types.InputError{Field: "additional_domains", Value: d, Err: errors.Wrap(ErrInvalidDomain, r.Details)}
		}
		if r.Suggestion != "" {
			f.log.WithField("domain", r.Details).WithField("suggestion", r.Suggestion).Warn("extra domain looks like a typo")
		}
		if !seen[r.Details] {
			seen[r.Details] = true
			out = append(out, r.Details)
		}
	}
	return out, nil
}

// jitter returns a random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
