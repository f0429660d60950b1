package check_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/internal/smtpprobe"
	"github.com/optimode/emailfinder/types"
)

type fakeProber struct {
	reply smtpprobe.Reply
	err   error
	calls int
}

func (f *fakeProber) Check(_ context.Context, host, _ string) (smtpprobe.Reply, error) {
	f.calls++
	r := f.reply
	r.Host = host
	return r, f.err
}

func newProbe(records []*net.MX, lookupErr error, prober check.Prober) *check.Probe {
	lookup := staticMX(records, lookupErr)
	return check.NewProbe(
		check.NewSyntaxChecker(),
		check.NewDNSChecker(lookup),
		check.NewSMTPChecker(check.SMTPConfig{MaxMXHosts: 1}, lookup, prober),
		types.DefaultTierPolicy(),
	)
}

func TestProbe_ClassificationTable(t *testing.T) {
	noMX := &net.DNSError{Err: "no such host", IsNotFound: true}

	tests := []struct {
		name       string
		records    []*net.MX
		lookupErr  error
		reply      smtpprobe.Reply
		probeErr   error
		wantTier   types.ConfidenceTier
		wantReason string
	}{
		{"accepted", acmeMX, nil, smtpprobe.Reply{Code: 250}, nil, types.TierHigh, "rcpt-250"},
		{"mailbox unknown", acmeMX, nil, smtpprobe.Reply{Code: 550}, nil, types.TierInvalid, "rcpt-550"},
		{"greylisted", acmeMX, nil, smtpprobe.Reply{Code: 451}, nil, types.TierMedium, "rcpt-451"},
		{"policy reject", acmeMX, nil, smtpprobe.Reply{Code: 553}, nil, types.TierMedium, "rcpt-553"},
		{"connect refused", acmeMX, nil, smtpprobe.Reply{}, &types.TransportError{Op: "connect", Err: assert.AnError}, types.TierLow, "connect-failed"},
		{"helo rejected", acmeMX, nil, smtpprobe.Reply{}, &types.ProtocolError{Step: "helo", Code: 550}, types.TierLow, "helo-rejected"},
		{"no MX but accepted", nil, noMX, smtpprobe.Reply{Code: 250}, nil, types.TierMedium, "mx-missing"},
		{"no MX and 550", nil, noMX, smtpprobe.Reply{Code: 550}, nil, types.TierInvalid, "rcpt-550"},
		{"no MX and unreachable", nil, noMX, smtpprobe.Reply{}, &types.TransportError{Op: "connect", Err: assert.AnError}, types.TierLow, "connect-failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProbe(tt.records, tt.lookupErr, &fakeProber{reply: tt.reply, err: tt.probeErr})

			out := p.Verify(context.Background(), types.Candidate{Address: "john.smith@acme.com"})

			assert.Equal(t, tt.wantTier, out.Tier)
			assert.Equal(t, tt.wantReason, out.Reason)
			assert.Len(t, out.Checks, 3)
		})
	}
}

func TestProbe_TransportFailureNeverInvalid(t *testing.T) {
	for _, err := range []error{
		&types.TransportError{Op: "connect", Err: assert.AnError},
		&types.TransportError{Op: "rcpt", Err: assert.AnError},
		&types.ProtocolError{Step: "mail-from", Code: 553},
	} {
		p := newProbe(acmeMX, nil, &fakeProber{err: err})
		out := p.Verify(context.Background(), types.Candidate{Address: "ana@acme.com"})
		assert.NotEqual(t, types.TierInvalid, out.Tier, err.Error())
	}
}

func TestProbe_BadFormatShortCircuits(t *testing.T) {
	prober := &fakeProber{reply: smtpprobe.Reply{Code: 250}}
	p := newProbe(acmeMX, nil, prober)

	out := p.Verify(context.Background(), types.Candidate{Address: "not-an-address"})

	assert.Equal(t, types.TierInvalid, out.Tier)
	assert.Equal(t, "bad-format", out.Reason)
	assert.Zero(t, prober.calls)
	assert.Len(t, out.Checks, 1)
}

func TestProbe_CustomPolicy(t *testing.T) {
	policy := types.TierPolicy{
		OnAccept:           types.TierMedium,
		OnOtherReply:       types.TierLow,
		OnTransportFailure: types.TierLow,
		NoMXCap:            types.TierLow,
	}
	lookup := staticMX(acmeMX, nil)
	p := check.NewProbe(check.NewSyntaxChecker(), check.NewDNSChecker(lookup),
		check.NewSMTPChecker(check.SMTPConfig{}, lookup, &fakeProber{reply: smtpprobe.Reply{Code: 250}}), policy)

	out := p.Verify(context.Background(), types.Candidate{Address: "ana@acme.com"})
	assert.Equal(t, types.TierMedium, out.Tier)
}
