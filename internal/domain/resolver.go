// Package domain maps a company name to the domain its mail most likely
// lives on.
package domain

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/optimode/emailfinder/internal/blocklist"
	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/internal/search"
)

// HostLookup returns the A/AAAA addresses of host.
type HostLookup func(ctx context.Context, host string) ([]string, error)

type Config struct {
	// QueryTemplate may contain {company}.
	QueryTemplate string
	MaxResults    int
	Blocklist     []string
}

// Resolver never fails: when nothing better is found it returns the
// direct guess, and "" when the company name yields none.
type Resolver struct {
	lookupHost HostLookup
	searcher   search.Searcher
	cfg        Config
	blocked    *blocklist.List
	log        logrus.FieldLogger
}

func NewResolver(lookupHost HostLookup, searcher search.Searcher, cfg Config, log logrus.FieldLogger) *Resolver {
	if cfg.QueryTemplate == "" {
		cfg.QueryTemplate = "{company} official website"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{
		lookupHost: lookupHost,
		searcher:   searcher,
		cfg:        cfg,
		blocked:    blocklist.New(cfg.Blocklist...),
		log:        log,
	}
}

// Guess is the direct "{normalized}.com" guess for a company name. Names
// without Latin letters or digits keep their own script and are returned
// in punycode form. It reports false when no usable label remains.
func Guess(company string) (string, bool) {
	if label := parse.CompanyLabel(company); label != "" {
		return label + ".com", true
	}
	label := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return -1
	}, strings.ToLower(company))
	if label == "" {
		return "", false
	}
	ascii, _, ok := parse.Domain(label + ".com")
	if !ok {
		return "", false
	}
	return ascii, true
}

// Resolve returns the company's domain. It returns "" only when the name
// yields no guess and the search finds nothing either.
func (r *Resolver) Resolve(ctx context.Context, company string) string {
	guess, ok := Guess(company)
	log := r.log.WithField("company", company)

	if ok && r.lookupHost != nil {
		addrs, err := r.lookupHost(ctx, guess)
		if err == nil && len(addrs) > 0 {
			log.WithField("domain", guess).Debug("direct domain guess resolves")
			return guess
		}
	}

	if r.searcher != nil && ctx.Err() == nil {
		query := strings.ReplaceAll(r.cfg.QueryTemplate, "{company}", strings.TrimSpace(company))
		results, err := r.searcher.Search(ctx, query)
		if err != nil {
			log.WithError(err).Debug("domain search returned no data")
		}
		for i, res := range results {
			if i >= r.cfg.MaxResults {
				break
			}
			d := Registrable(res.Link)
			if d == "" || r.blocked.Contains(d) {
				continue
			}
			log.WithField("domain", d).Info("domain found in search results")
			return d
		}
	}

	if !ok {
		log.Warn("company name yields no domain guess")
		return ""
	}
	log.WithField("domain", guess).Debug("falling back to direct domain guess")
	return guess
}

// Registrable returns the registrable domain (eTLD+1) of a link, or "" if
// the link has no usable host.
func Registrable(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "://") {
		link = "https://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return d
}
