package check

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"syscall"

	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/internal/smtpprobe"
	"github.com/optimode/emailfinder/types"
)

// SMTPConfig is the SMTP checker configuration.
type SMTPConfig struct {
	// MaxMXHosts is how many MX hosts to try before the bare domain.
	MaxMXHosts int
}

// Prober runs one RCPT round-trip. *smtpprobe.Client satisfies it.
type Prober interface {
	Check(ctx context.Context, host, email string) (smtpprobe.Reply, error)
}

// SMTPChecker performs the SMTP RCPT TO probe. It tries the preferred MX
// hosts and then the bare domain, moving on only when a connect fails.
type SMTPChecker struct {
	cfg    SMTPConfig
	lookup MXLookup
	prober Prober
}

// NewSMTPChecker creates an SMTP checker sharing the DNS checker's lookup.
func NewSMTPChecker(cfg SMTPConfig, lookup MXLookup, prober Prober) *SMTPChecker {
	if cfg.MaxMXHosts <= 0 {
		cfg.MaxMXHosts = 1
	}
	return &SMTPChecker{cfg: cfg, lookup: lookup, prober: prober}
}

// Check returns Passed for a 2xx/3xx RCPT reply. SMTPCode is set whenever the
// server answered RCPT; Reason is a short diagnostic code.
func (c *SMTPChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	level := types.LevelSMTP

	if !email.Valid {
		return types.CheckResult{Level: level, Passed: false, Details: "skipped: invalid email", Reason: "bad-format"}
	}

	var hosts []string
	if mx, err := MXHosts(ctx, c.lookup, email.Domain); err == nil {
		if len(mx) > c.cfg.MaxMXHosts {
			mx = mx[:c.cfg.MaxMXHosts]
		}
		hosts = mx
	}
	if !slices.Contains(hosts, email.Domain) {
		hosts = append(hosts, email.Domain)
	}

	var lastErr error
	for _, host := range hosts {
		if ctx.Err() != nil {
			return types.CheckResult{Level: level, Passed: false, Details: "context cancelled", Reason: "cancelled"}
		}

		reply, err := c.prober.Check(ctx, host, email.Raw)
		if err != nil {
			lastErr = err
			var te *types.TransportError
			if errors.As(err, &te) && te.Op == "connect" {
				continue
			}
			break
		}

		return types.CheckResult{
			Level:    level,
			Passed:   reply.Code < 400,
			Details:  fmt.Sprintf("RCPT TO replied: %s", reply.Message),
			Reason:   fmt.Sprintf("rcpt-%d", reply.Code),
			MXHost:   host,
			SMTPCode: reply.Code,
		}
	}

	return types.CheckResult{
		Level:   level,
		Passed:  false,
		Details: fmt.Sprintf("SMTP probe failed: %v", lastErr),
		Reason:  FailureReason(lastErr),
	}
}

// FailureReason maps a probe error to a diagnostic code.
func FailureReason(err error) string {
	var (
		te *types.TransportError
		pe *types.ProtocolError
	)
	switch {
	case err == nil:
		return "protocol-error"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &pe):
		switch pe.Step {
		case "banner":
			return "banner-rejected"
		case "helo":
			return "helo-rejected"
		case "mail-from":
			return "mail-from-rejected"
		}
		return "protocol-error"
	case errors.As(err, &te):
		switch {
		case te.Op == "cancelled":
			return "cancelled"
		case te.Op == "connect" && errors.Is(err, syscall.ECONNREFUSED):
			return "connect-refused"
		case te.Op == "connect" && te.Timeout():
			return "connect-timeout"
		case te.Op == "connect":
			return "connect-failed"
		case te.Timeout():
			return "session-timeout"
		}
		return "session-error"
	}
	return "protocol-error"
}
