package emailfinder

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/internal/dnscache"
	"github.com/optimode/emailfinder/internal/domain"
	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/internal/fetch/browser"
	"github.com/optimode/emailfinder/internal/fetch/httpsession"
	"github.com/optimode/emailfinder/internal/format"
	"github.com/optimode/emailfinder/internal/pattern"
	"github.com/optimode/emailfinder/internal/search"
	"github.com/optimode/emailfinder/types"
)

// pipeline is everything one request owns. Nothing in it is shared with
// other requests except the stateless SMTP prober and resolver.
type pipeline struct {
	f   *Finder
	log logrus.FieldLogger

	session   *fetch.LazySession
	resolver  *domain.Resolver
	formats   *format.Engine
	generator *pattern.Generator
	probe     *check.Probe
}

func (f *Finder) newPipeline(ctx context.Context, company string, o findOptions) (*pipeline, error) {
	cfg := f.cfg
	log := f.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"company":    strings.TrimSpace(company),
	})

	headless := cfg.Fetch.Headless
	if o.headless != nil {
		headless = *o.headless
	}
	session := fetch.NewLazySession(f.sessionFactory(headless))

	searcher := f.searcher
	if searcher == nil {
		fc := fetch.Config{
			MaxAttempts:       cfg.Fetch.MaxAttempts,
			BackoffFactor:     cfg.Fetch.BackoffFactor,
			ManualSolveWait:   cfg.Fetch.ManualSolveWait,
			Markers:           cfg.Fetch.ChallengeMarkers,
			ContinueSelectors: cfg.Fetch.ContinueSelectors,
			FrameSelectors:    cfg.Fetch.ChallengeFrameSelectors,
			CheckboxSelector:  cfg.Fetch.CheckboxSelector,
			RateLimit:         cfg.Fetch.RateLimit,
		}
		if cfg.Search.Provider == "api" {
			fc.Markers = nil
		}
		fetcher := fetch.New(session, fc, fetch.WithLogger(log), fetch.WithSleep(f.sleep))

		s, err := search.New(ctx, cfg.Search, fetcher)
		if err != nil {
			_ = session.Close()
			return nil, errors.Wrap(err, "emailfinder: search provider")
		}
		searcher = s
	}

	cache := dnscache.New(f.resolver, cfg.DNS.Timeout, cfg.DNS.CacheTTL)
	resolver := domain.NewResolver(cache.LookupHost, searcher, domain.Config{
		QueryTemplate: cfg.Domain.QueryTemplate,
		MaxResults:    cfg.Domain.MaxResults,
		Blocklist:     cfg.Domain.Blocklist,
	}, log)
	formats := format.NewEngine(searcher, format.Config{
		Queries:          cfg.Formats.Queries,
		MinSnippetLength: cfg.Formats.MinSnippetLength,
		Fallback:         cfg.Formats.Fallback,
		Known:            cfg.Formats.Known,
		Signatures:       cfg.Formats.Signatures,
	}, log)
	probe := check.NewProbe(
		check.NewSyntaxChecker(),
		check.NewDNSChecker(cache.LookupMX),
		check.NewSMTPChecker(check.SMTPConfig{MaxMXHosts: cfg.SMTP.MaxMXHosts}, cache.LookupMX, f.prober),
		cfg.Tiers,
	)

	return &pipeline{
		f:         f,
		log:       log,
		session:   session,
		resolver:  resolver,
		formats:   formats,
		generator: pattern.NewGenerator(cfg.Formats.Fallback),
		probe:     probe,
	}, nil
}

func (f *Finder) sessionFactory(headless bool) fetch.Factory {
	if f.newSession != nil {
		return func(ctx context.Context) (fetch.Session, error) {
			return f.newSession(ctx, headless)
		}
	}
	if f.cfg.Fetch.Session == "browser" {
		return browser.Factory(browser.Config{
			Headless:        headless,
			UserAgent:       f.cfg.Fetch.UserAgent,
			PageLoadTimeout: f.cfg.Fetch.PageLoadTimeout,
			WaitSelector:    f.cfg.Fetch.WaitSelector,
		})
	}
	return httpsession.Factory(httpsession.Config{
		UserAgent: f.cfg.Fetch.UserAgent,
		Timeout:   f.cfg.Fetch.PageLoadTimeout,
	})
}

func (p *pipeline) close() {
	if err := p.session.Close(); err != nil {
		p.log.WithError(err).Warn("closing page session")
	}
}

func (p *pipeline) profile(ctx context.Context, first, last, company, knownDomain string) Profile {
	first, last, company = strings.TrimSpace(first), strings.TrimSpace(last), strings.TrimSpace(company)
	d := knownDomain
	if d == "" {
		d = p.resolver.Resolve(ctx, company)
	}
	return Profile{
		FullName:      strings.Join(strings.Fields(first+" "+last), " "),
		FirstName:     first,
		LastName:      last,
		Company:       company,
		CompanyDomain: d,
	}
}

func (p *pipeline) find(ctx context.Context, profile Profile, extras []string, progress func(int, int, VerificationOutcome)) ([]Result, error) {
	log := p.log.WithField("domain", profile.CompanyDomain)

	inference := p.formats.Infer(ctx, profile.CompanyDomain)
	formats := inference.Formats
	if inference.Source == format.SourceFallback {
		formats = nil
	}
	candidates := p.generator.Generate(profile, formats, extras)
	log.WithField("formats", inference.Formats).WithField("candidates", len(candidates)).Info("verifying candidates")

	cfg := p.f.cfg
	results := make([]Result, 0, len(candidates))
	for i, c := range candidates {
		if i > 0 {
			if err := p.f.sleep(ctx, jitter(cfg.Pacing.DelayMin, cfg.Pacing.DelayMax)); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		outcome := p.probe.Verify(ctx, c)
		if ctx.Err() != nil {
			// Cut short by the caller, not a verdict.
			break
		}
		log.WithFields(logrus.Fields{
			"email":  c.Address,
			"tier":   outcome.Tier,
			"reason": outcome.Reason,
		}).Debug("candidate verified")
		if progress != nil {
			progress(i+1, len(candidates), outcome)
		}
		if outcome.Tier == types.TierInvalid && !cfg.Output.KeepInvalid {
			continue
		}
		results = append(results, resultFrom(outcome))
	}

	Rank(results)
	return results, ctx.Err()
}
