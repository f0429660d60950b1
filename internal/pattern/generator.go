// Package pattern turns a profile and a list of naming conventions into
// candidate addresses.
package pattern

import (
	"strings"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/internal/format"
	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/types"
)

// Generator is pure: the same input always yields the same candidates in
// the same order.
type Generator struct {
	fallback []types.FormatToken
	sweep    []types.FormatToken
	syntax   *check.SyntaxChecker
}

// NewGenerator uses format.DefaultFallback when fallback is empty.
func NewGenerator(fallback []types.FormatToken) *Generator {
	if len(fallback) == 0 {
		fallback = format.DefaultFallback
	}
	return &Generator{fallback: fallback, sweep: format.ExtraDomainSweep, syntax: check.NewSyntaxChecker()}
}

var defaultGenerator = NewGenerator(nil)

// Generate is Generator.Generate with the default fallback list.
func Generate(p types.Profile, formats []types.FormatToken, extraDomains []string) []types.Candidate {
	return defaultGenerator.Generate(p, formats, extraDomains)
}

// Generate emits one candidate per format on the company domain, then the
// full sweep on each extra domain in caller order. Conventions needing a
// missing name part are skipped and duplicates keep their first position.
func (g *Generator) Generate(p types.Profile, formats []types.FormatToken, extraDomains []string) []types.Candidate {
	first, last := parse.NamePart(p.FirstName), parse.NamePart(p.LastName)

	var out []types.Candidate
	seen := make(map[string]bool)
	emit := func(domain string, tokens []types.FormatToken, source string) {
		domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain == "" {
			return
		}
		for _, t := range tokens {
			local, ok := format.Build(t, first, last)
			if !ok {
				continue
			}
			addr := local + "@" + domain
			if seen[addr] || !g.syntax.Valid(addr) {
				continue
			}
			seen[addr] = true
			out = append(out, types.Candidate{Address: addr, Format: t, Domain: domain, Source: source})
		}
	}

	if len(formats) == 0 {
		emit(p.CompanyDomain, g.fallback, types.SourceFallback)
	} else {
		emit(p.CompanyDomain, formats, types.SourceConvention)
	}
	for _, d := range extraDomains {
		emit(d, g.sweep, types.SourceExtraDomain)
	}
	return out
}
