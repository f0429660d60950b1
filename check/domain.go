package check

import (
	"strings"

	"github.com/optimode/emailfinder/internal/levenshtein"
	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/types"
)

// DomainConfig is the domain checker configuration.
type DomainConfig struct {
	TypoThreshold int
}

// DomainChecker vets caller-supplied extra domains. A malformed domain
// fails; a near miss of a major provider passes with a Suggestion.
type DomainChecker struct {
	cfg            DomainConfig
	knownProviders []string
}

// defaultKnownProviders are the mailbox providers people most often add
// as extra domains, and therefore most often mistype.
var defaultKnownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
}

func NewDomainChecker(cfg DomainConfig) *DomainChecker {
	if cfg.TypoThreshold <= 0 {
		cfg.TypoThreshold = 1
	}
	return &DomainChecker{cfg: cfg, knownProviders: defaultKnownProviders}
}

// CheckDomain validates domain and returns its normalized ASCII form in
// Details when it passes.
func (c *DomainChecker) CheckDomain(domain string) types.CheckResult {
	level := types.LevelDomain

	ascii, unicodeForm, ok := parse.Domain(domain)
	if !ok {
		return types.CheckResult{Level: level, Passed: false, Details: "domain fails IDNA validation", Reason: "bad-format"}
	}
	if msg := validateDomain(unicodeForm); msg != "" {
		return types.CheckResult{Level: level, Passed: false, Details: msg, Reason: "bad-format"}
	}

	result := types.CheckResult{Level: level, Passed: true, Details: ascii}
	if suggestion, _ := levenshtein.Closest(strings.ToLower(unicodeForm), c.knownProviders, c.cfg.TypoThreshold); suggestion != "" {
		result.Suggestion = suggestion
		result.Reason = "possible-typo"
	}
	return result
}
