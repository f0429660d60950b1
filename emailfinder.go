// Package emailfinder finds the most likely work email addresses of a
// person. It resolves the company's domain, infers the company's naming
// convention from web search snippets, generates candidate addresses and
// verifies each with an MX lookup and an SMTP RCPT probe.
//
// Basic usage:
//
//	cfg, _ := config.Load("")
//	results, err := emailfinder.New(cfg).FindEmails(ctx, "John", "Smith", "Acme", nil)
//
// With a known domain and extra domains:
//
//	results, err := emailfinder.New(cfg, emailfinder.WithLogger(log)).
//	    FindEmails(ctx, "Ana", "Lee", "Acme", []string{"example.org"},
//	        emailfinder.WithDomain("acme.com"))
package emailfinder

import (
	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/internal/pattern"
	"github.com/optimode/emailfinder/internal/search"
	"github.com/optimode/emailfinder/internal/smtpprobe"
	"github.com/optimode/emailfinder/types"
)

// Re-exports so that consumers don't need to import the types package directly.
type (
	CheckResult         = types.CheckResult
	CheckLevel          = types.CheckLevel
	ConfidenceTier      = types.ConfidenceTier
	FormatToken         = types.FormatToken
	Profile             = types.Profile
	Candidate           = types.Candidate
	VerificationOutcome = types.VerificationOutcome
	InputError          = types.InputError
)

// Level constants re-exported.
const (
	LevelSyntax = types.LevelSyntax
	LevelDNS    = types.LevelDNS
	LevelDomain = types.LevelDomain
	LevelSMTP   = types.LevelSMTP
)

// Tier constants re-exported.
const (
	TierInvalid = types.TierInvalid
	TierLow     = types.TierLow
	TierMedium  = types.TierMedium
	TierHigh    = types.TierHigh
)

// Pluggable backends.
type (
	// Session is one page session used by web searches.
	Session = fetch.Session
	// Searcher runs web searches for domain resolution and format inference.
	Searcher     = search.Searcher
	SearchResult = search.Result
	// DialFunc opens SMTP connections.
	DialFunc = smtpprobe.DialFunc
)

// Candidates generates the candidate addresses for a profile without
// verifying them. An empty formats list means the fallback conventions.
func Candidates(p Profile, formats []FormatToken, extraDomains []string) []Candidate {
	return pattern.Generate(p, formats, extraDomains)
}
