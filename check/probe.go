package check

import (
	"context"

	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/types"
)

// replyMailboxUnknown is the only RCPT reply that proves an address is dead.
const replyMailboxUnknown = 550

// Probe runs the syntax, MX and SMTP levels for one candidate and turns
// their results into a confidence tier. Nothing is retried.
type Probe struct {
	syntax *SyntaxChecker
	dns    *DNSChecker
	smtp   *SMTPChecker
	policy types.TierPolicy
}

func NewProbe(syntax *SyntaxChecker, dns *DNSChecker, smtp *SMTPChecker, policy types.TierPolicy) *Probe {
	return &Probe{syntax: syntax, dns: dns, smtp: smtp, policy: policy}
}

// Verify classifies one candidate.
//
//	250                       -> policy.OnAccept (High)
//	550                       -> Invalid
//	any other RCPT reply      -> policy.OnOtherReply (Medium)
//	connect/protocol failure  -> policy.OnTransportFailure (Low)
//
// Without MX records the tier is capped at policy.NoMXCap.
func (p *Probe) Verify(ctx context.Context, c types.Candidate) types.VerificationOutcome {
	out := types.VerificationOutcome{Candidate: c}
	email := parse.NewEmail(c.Address)

	sr := p.syntax.Check(ctx, email)
	out.Checks = append(out.Checks, sr)
	if !sr.Passed {
		out.Tier, out.Reason = types.TierInvalid, sr.Reason
		return out
	}

	dr := p.dns.Check(ctx, email)
	out.Checks = append(out.Checks, dr)
	hasMX := dr.Passed

	mr := p.smtp.Check(ctx, email)
	out.Checks = append(out.Checks, mr)
	out.Reason = mr.Reason

	switch {
	case mr.SMTPCode == replyMailboxUnknown:
		out.Tier = types.TierInvalid
		return out
	case mr.SMTPCode == 250:
		out.Tier = p.policy.OnAccept
	case mr.SMTPCode != 0:
		out.Tier = p.policy.OnOtherReply
	default:
		out.Tier = p.policy.OnTransportFailure
	}

	if !hasMX {
		if out.Tier > p.policy.NoMXCap {
			out.Tier = p.policy.NoMXCap
		}
		if mr.SMTPCode == 250 {
			out.Reason = "mx-missing"
		}
	}
	return out
}
