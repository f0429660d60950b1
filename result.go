package emailfinder

import (
	"slices"
	"strings"
)

// Result is one verified candidate address.
type Result struct {
	Address string         `json:"email"`
	Tier    ConfidenceTier `json:"confidence"`
	Source  string         `json:"source"`
	Reason  string         `json:"reason"`
	Format  FormatToken    `json:"format,omitempty"`
	Checks  []CheckResult  `json:"checks,omitempty"`
}

func resultFrom(o VerificationOutcome) Result {
	return Result{
		Address: o.Candidate.Address,
		Tier:    o.Tier,
		Source:  o.Candidate.Source,
		Reason:  o.Reason,
		Format:  o.Candidate.Format,
		Checks:  o.Checks,
	}
}

// FailedChecks returns those CheckResults that did not pass.
func (r Result) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// CheckFor returns the CheckResult for the given level, if it exists.
// The second return value indicates whether the given level was executed.
func (r Result) CheckFor(level CheckLevel) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Level == level {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Rank sorts results by tier, highest first. Equal tiers keep their
// generation order.
func Rank(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		return int(b.Tier) - int(a.Tier)
	})
}

// Addresses returns the addresses of results in order.
func Addresses(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Address)
	}
	return out
}

// Best returns the first result at or above floor, if any.
func Best(results []Result, floor ConfidenceTier) (Result, bool) {
	for _, r := range results {
		if r.Tier >= floor {
			return r, true
		}
	}
	return Result{}, false
}

func (r Result) String() string {
	var b strings.Builder
	b.WriteString(r.Address)
	b.WriteString(" [")
	b.WriteString(r.Tier.String())
	if r.Reason != "" {
		b.WriteString(", ")
		b.WriteString(r.Reason)
	}
	b.WriteString("]")
	return b.String()
}
