// Package types contains the shared types for emailfinder.
// This package does not import anything from other emailfinder packages
// to avoid circular imports.
package types

import (
	"fmt"
	"strings"
)

// CheckLevel identifies the verification level.
type CheckLevel = string

const (
	LevelSyntax CheckLevel = "syntax"
	LevelDNS    CheckLevel = "dns"
	LevelDomain CheckLevel = "domain"
	LevelSMTP   CheckLevel = "smtp"
)

// CheckResult is the outcome of a single verification level.
type CheckResult struct {
	Level      CheckLevel `json:"level"`
	Passed     bool       `json:"passed"`
	Details    string     `json:"details,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	MXHost     string     `json:"mxHost,omitempty"`
	SMTPCode   int        `json:"smtpCode,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
}

// FormatToken names an email naming convention.
type FormatToken string

const (
	FormatUnknown             FormatToken = ""
	FormatFirstInitialLast    FormatToken = "flast"
	FormatFirstDotLast        FormatToken = "first.last"
	FormatFirst               FormatToken = "first"
	FormatFirstInitialDotLast FormatToken = "f.last"
	FormatFirstLast           FormatToken = "firstlast"
	FormatFirstUnderscoreLast FormatToken = "first_last"
	FormatLastDotFirst        FormatToken = "last.first"
	FormatLast                FormatToken = "last"
	FormatFirstLastInitial    FormatToken = "firstl"
)

// Candidate sources.
const (
	SourceConvention  = "convention"
	SourceFallback    = "fallback"
	SourceExtraDomain = "extra-domain"
)

// ConfidenceTier is an ordered estimate of how likely an address is a real mailbox.
// The zero value is Invalid.
type ConfidenceTier int

const (
	TierInvalid ConfidenceTier = iota
	TierLow
	TierMedium
	TierHigh
)

var tierNames = [...]string{"Invalid", "Low", "Medium", "High"}

func (t ConfidenceTier) String() string {
	if t < TierInvalid || t > TierHigh {
		return fmt.Sprintf("ConfidenceTier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText implements encoding.TextMarshaler (JSON and YAML use it).
func (t ConfidenceTier) MarshalText() ([]byte, error) {
	if t < TierInvalid || t > TierHigh {
		return nil, fmt.Errorf("invalid confidence tier %d", int(t))
	}
	return []byte(tierNames[t]), nil
}

// UnmarshalText accepts tier names case-insensitively.
func (t *ConfidenceTier) UnmarshalText(b []byte) error {
	tier, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTier parses a tier name such as "High" or "medium".
func ParseTier(s string) (ConfidenceTier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return ConfidenceTier(i), nil
		}
	}
	return TierInvalid, fmt.Errorf("unknown confidence tier %q", s)
}

// Profile is the person an email address is searched for.
// It is built once per request and never mutated afterwards.
type Profile struct {
	FullName      string `json:"full_name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Company       string `json:"company"`
	CompanyDomain string `json:"company_domain,omitempty"`
}

// Candidate is a generated address waiting to be verified.
type Candidate struct {
	Address string      `json:"address"`
	Format  FormatToken `json:"format,omitempty"`
	Domain  string      `json:"domain"`
	Source  string      `json:"source"`
}

// VerificationOutcome is the verdict for one candidate.
type VerificationOutcome struct {
	Candidate Candidate      `json:"candidate"`
	Tier      ConfidenceTier `json:"tier"`
	Reason    string         `json:"reason"`
	Checks    []CheckResult  `json:"checks,omitempty"`
}

// TierPolicy maps verification signals to confidence tiers.
// A 550 RCPT reply is always Invalid and is not part of the policy.
type TierPolicy struct {
	OnAccept           ConfidenceTier `yaml:"on_accept" json:"on_accept"`
	OnOtherReply       ConfidenceTier `yaml:"on_other_reply" json:"on_other_reply"`
	OnTransportFailure ConfidenceTier `yaml:"on_transport_failure" json:"on_transport_failure"`
	NoMXCap            ConfidenceTier `yaml:"no_mx_cap" json:"no_mx_cap"`
}

// DefaultTierPolicy returns the stock mapping: 250 is High, any other
// definite reply is Medium, network trouble is Low and a domain without
// MX records never rises above Medium.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{
		OnAccept:           TierHigh,
		OnOtherReply:       TierMedium,
		OnTransportFailure: TierLow,
		NoMXCap:            TierMedium,
	}
}

// Validate reports policies that would break the tier invariants.
func (p TierPolicy) Validate() error {
	switch {
	case p.OnAccept == TierInvalid, p.OnOtherReply == TierInvalid, p.OnTransportFailure == TierInvalid:
		return fmt.Errorf("tier policy: only a 550 reply may yield %s", TierInvalid)
	case p.NoMXCap >= TierHigh || p.NoMXCap == TierInvalid:
		return fmt.Errorf("tier policy: no_mx_cap must be Low or Medium, got %s", p.NoMXCap)
	}
	return nil
}
