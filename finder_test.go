package emailfinder_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailfinder"
	"github.com/optimode/emailfinder/config"
	"github.com/optimode/emailfinder/internal/logging"
	"github.com/optimode/emailfinder/types"
)

// fakeDNS answers from static tables; everything else is NXDOMAIN.
type fakeDNS struct {
	hosts map[string][]string
	mx    map[string][]*net.MX
}

func (d fakeDNS) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := d.hosts[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (d fakeDNS) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if records, ok := d.mx[name]; ok {
		return records, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

type searchFunc func(ctx context.Context, query string) ([]emailfinder.SearchResult, error)

func (f searchFunc) Search(ctx context.Context, query string) ([]emailfinder.SearchResult, error) {
	return f(ctx, query)
}

func formatSnippet(snippet string) emailfinder.Searcher {
	return searchFunc(func(_ context.Context, q string) ([]emailfinder.SearchResult, error) {
		if strings.Contains(q, "email format") {
			return []emailfinder.SearchResult{{Snippet: snippet}}, nil
		}
		return nil, nil
	})
}

// smtpServer answers RCPT TO with rcpt(address) on one end of a net.Pipe.
func smtpServer(rcpt func(address string) string) emailfinder.DialFunc {
	return func(_, _ string, _ time.Duration) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer func() { _ = server.Close() }()
			r := bufio.NewReader(server)
			_, _ = fmt.Fprintf(server, "220 mx.test ESMTP\r\n")
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				line = strings.TrimSpace(line)
				cmd := strings.ToUpper(line)
				switch {
				case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
					_, _ = fmt.Fprintf(server, "250 mx.test\r\n")
				case strings.HasPrefix(cmd, "MAIL FROM"):
					_, _ = fmt.Fprintf(server, "250 OK\r\n")
				case strings.HasPrefix(cmd, "RCPT TO"):
					addr := strings.ToLower(strings.Trim(line[len("RCPT TO:"):], "<> "))
					_, _ = fmt.Fprintf(server, "%s\r\n", rcpt(addr))
				case strings.HasPrefix(cmd, "QUIT"):
					_, _ = fmt.Fprintf(server, "221 Bye\r\n")
					return
				default:
					_, _ = fmt.Fprintf(server, "502 Command not implemented\r\n")
				}
			}
		}()
		return client, nil
	}
}

func acceptAll(string) string { return "250 OK" }

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Pacing = config.PacingConfig{}
	cfg.Formats.Known = nil
	cfg.Fetch.MaxAttempts = 1
	cfg.Fetch.RateLimit = 0
	return cfg
}

var acmeDNS = fakeDNS{
	hosts: map[string][]string{"acme.com": {"192.0.2.10"}},
	mx: map[string][]*net.MX{
		"acme.com":    {{Host: "mx.acme.com.", Pref: 10}},
		"example.org": {{Host: "mx.example.org.", Pref: 10}},
	},
}

func newFinder(cfg config.Config, opts ...emailfinder.Option) *emailfinder.Finder {
	base := []emailfinder.Option{
		emailfinder.WithLogger(logging.Nop()),
		emailfinder.WithSleep(noSleep),
		emailfinder.WithResolver(acmeDNS),
		emailfinder.WithSMTPDial(smtpServer(acceptAll)),
	}
	return emailfinder.New(cfg, append(base, opts...)...)
}

func TestFindEmails_InferredConventionRanksFirst(t *testing.T) {
	f := newFinder(testConfig(),
		emailfinder.WithSearcher(formatSnippet("Acme's email format typically follows the pattern of first.last@acme.com (87%)")),
		emailfinder.WithSMTPDial(smtpServer(func(addr string) string {
			if addr == "john.smith@acme.com" {
				return "250 OK"
			}
			return "550 No such user"
		})),
	)

	results, err := f.FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "john.smith@acme.com", results[0].Address)
	assert.Equal(t, emailfinder.TierHigh, results[0].Tier)
	assert.Equal(t, types.SourceConvention, results[0].Source)
	assert.Equal(t, types.FormatFirstDotLast, results[0].Format)
	assert.Equal(t, "rcpt-250", results[0].Reason)
}

func TestFindEmails_ExtraDomainSweep(t *testing.T) {
	cfg := testConfig()
	cfg.Formats.Known = map[string]types.FormatToken{"acme": types.FormatFirst}
	f := newFinder(cfg, emailfinder.WithSearcher(formatSnippet("")))

	resp, err := f.Find(context.Background(), emailfinder.Request{
		FirstName:    "Ana",
		LastName:     "Lee",
		Company:      "Acme",
		ExtraDomains: []string{" Example.org ", "example.org"},
	}, emailfinder.WithDomain("acme.com"))
	require.NoError(t, err)

	assert.Equal(t, "acme.com", resp.Profile.CompanyDomain)
	assert.Equal(t, "Ana Lee", resp.Profile.FullName)
	assert.Equal(t, []string{
		"ana@acme.com",
		"alee@example.org",
		"ana@example.org",
		"lee@example.org",
		"ana.lee@example.org",
		"ana_lee@example.org",
		"analee@example.org",
		"anal@example.org",
		"lee.ana@example.org",
	}, emailfinder.Addresses(resp.Results))
	for _, r := range resp.Results[1:] {
		assert.Equal(t, types.SourceExtraDomain, r.Source)
	}
}

// challengeSession always shows a bot challenge it cannot get past.
type challengeSession struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (s *challengeSession) factory(context.Context, bool) (emailfinder.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return s, nil
}

func (s *challengeSession) Navigate(context.Context, string) error { return nil }
func (s *challengeSession) Content(context.Context) (string, error) {
	return "<html>Our systems have detected unusual traffic from your computer network.</html>", nil
}
func (s *challengeSession) Click(context.Context, string) (bool, error) { return false, nil }
func (s *challengeSession) ClickInFrame(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *challengeSession) Interactive() bool { return false }
func (s *challengeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func TestFindEmails_ChallengeFallsBackToGuessAndFallbackFormats(t *testing.T) {
	session := &challengeSession{}
	var dialed []string
	accept := smtpServer(acceptAll)
	f := newFinder(testConfig(),
		emailfinder.WithResolver(fakeDNS{}),
		emailfinder.WithSessionFactory(session.factory),
		emailfinder.WithSMTPDial(func(network, address string, timeout time.Duration) (net.Conn, error) {
			dialed = append(dialed, address)
			return accept(network, address, timeout)
		}),
	)

	resp, err := f.Find(context.Background(), emailfinder.Request{FirstName: "John", LastName: "Smith", Company: "Globex Corp"})
	require.NoError(t, err)

	assert.Equal(t, "globexcorp.com", resp.Profile.CompanyDomain)
	assert.Equal(t, []string{
		"jsmith@globexcorp.com",
		"john.smith@globexcorp.com",
		"john@globexcorp.com",
		"johnsmith@globexcorp.com",
		"john_smith@globexcorp.com",
	}, emailfinder.Addresses(resp.Results))
	for _, r := range resp.Results {
		assert.Equal(t, types.SourceFallback, r.Source)
		assert.NotEqual(t, emailfinder.TierHigh, r.Tier, "no MX must never be High")
		assert.Equal(t, emailfinder.TierMedium, r.Tier)
		assert.Equal(t, "mx-missing", r.Reason)
	}
	assert.Contains(t, dialed, "globexcorp.com:25")
	assert.Equal(t, 1, session.opened)
	assert.Equal(t, 1, session.closed)
}

func TestFindEmails_SessionNotOpenedWithoutSearch(t *testing.T) {
	session := &challengeSession{}
	cfg := testConfig()
	cfg.Formats.Known = map[string]types.FormatToken{"acme": types.FormatFirstDotLast}
	f := newFinder(cfg, emailfinder.WithSessionFactory(session.factory))

	_, err := f.FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.NoError(t, err)
	assert.Zero(t, session.opened)
	assert.Zero(t, session.closed)
}

func TestFindEmails_InvalidDroppedUnlessKept(t *testing.T) {
	reject := emailfinder.WithSMTPDial(smtpServer(func(string) string { return "550 5.1.1 User unknown" }))
	snippet := emailfinder.WithSearcher(formatSnippet("the email format typically follows first.last@acme.com"))

	results, err := newFinder(testConfig(), reject, snippet).FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	cfg := testConfig()
	cfg.Output.KeepInvalid = true
	results, err = newFinder(cfg, reject, snippet).FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, emailfinder.TierInvalid, results[0].Tier)
	assert.Equal(t, "rcpt-550", results[0].Reason)
}

func TestFindEmails_RankingIsNonIncreasing(t *testing.T) {
	f := newFinder(testConfig(),
		emailfinder.WithSearcher(formatSnippet("")),
		emailfinder.WithSMTPDial(smtpServer(func(addr string) string {
			switch addr {
			case "john@acme.com":
				return "250 OK"
			case "jsmith@acme.com":
				return "451 Greylisted"
			default:
				return "550 No such user"
			}
		})),
	)

	results, err := f.FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"john@acme.com", "jsmith@acme.com"}, emailfinder.Addresses(results))
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Tier, results[i].Tier)
	}
}

func TestFind_InputErrors(t *testing.T) {
	f := newFinder(testConfig(), emailfinder.WithSearcher(formatSnippet("")))

	tests := []struct {
		name    string
		req     emailfinder.Request
		opts    []emailfinder.FindOption
		field   string
		wantErr error
	}{
		{"missing first", emailfinder.Request{LastName: "Smith", Company: "Acme"}, nil, "first_name", emailfinder.ErrMissingField},
		{"blank last", emailfinder.Request{FirstName: "John", LastName: "  ", Company: "Acme"}, nil, "last_name", emailfinder.ErrMissingField},
		{"missing company", emailfinder.Request{FirstName: "John", LastName: "Smith"}, nil, "company", emailfinder.ErrMissingField},
		{"bad extra domain", emailfinder.Request{FirstName: "John", LastName: "Smith", Company: "Acme", ExtraDomains: []string{"not a domain"}}, nil, "additional_domains", emailfinder.ErrInvalidDomain},
		{"single label extra", emailfinder.Request{FirstName: "John", LastName: "Smith", Company: "Acme", ExtraDomains: []string{"localhost"}}, nil, "additional_domains", emailfinder.ErrInvalidDomain},
		{"bad known domain", emailfinder.Request{FirstName: "John", LastName: "Smith", Company: "Acme"}, []emailfinder.FindOption{emailfinder.WithDomain("-acme-.com")}, "domain", emailfinder.ErrInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Find(context.Background(), tt.req, tt.opts...)

			var inputErr *emailfinder.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFindEmails_TypoInExtraDomainOnlyWarns(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	f := newFinder(testConfig(), emailfinder.WithLogger(log), emailfinder.WithSearcher(formatSnippet("")))

	results, err := f.FindEmails(context.Background(), "Ana", "Lee", "Acme", []string{"gmal.com"}, emailfinder.WithDomain("acme.com"))
	require.NoError(t, err)

	assert.Contains(t, emailfinder.Addresses(results), "ana@gmal.com")
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["suggestion"] == "gmail.com" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DNS.Mode = "carrier-pigeon"

	f := newFinder(cfg)
	require.Error(t, f.Err())

	_, err := f.FindEmails(context.Background(), "John", "Smith", "Acme", nil)
	require.Error(t, err)
	var inputErr *emailfinder.InputError
	assert.False(t, errors.As(err, &inputErr))
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := testConfig()
	f := newFinder(cfg)
	cfg.Formats.Fallback[0] = types.FormatLast

	assert.Equal(t, types.FormatFirstInitialLast, f.Config().Formats.Fallback[0])
}

func TestFindEmails_CancelledContext(t *testing.T) {
	f := newFinder(testConfig(), emailfinder.WithSearcher(formatSnippet("")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := f.FindEmails(ctx, "John", "Smith", "Acme", nil, emailfinder.WithDomain("acme.com"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestFindEmails_Progress(t *testing.T) {
	f := newFinder(testConfig(), emailfinder.WithSearcher(formatSnippet("")))

	var calls [][2]int
	_, err := f.FindEmails(context.Background(), "John", "Smith", "Acme", nil,
		emailfinder.WithProgress(func(done, total int, _ emailfinder.VerificationOutcome) {
			calls = append(calls, [2]int{done, total})
		}))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}, calls)
}

func TestExtractProfile_ResolvesThroughSearch(t *testing.T) {
	f := newFinder(testConfig(),
		emailfinder.WithResolver(fakeDNS{}),
		emailfinder.WithSearcher(searchFunc(func(_ context.Context, q string) ([]emailfinder.SearchResult, error) {
			if q == "Initech official website" {
				return []emailfinder.SearchResult{
					{Link: "https://www.linkedin.com/company/initech"},
					{Link: "https://www.initech.io/about"},
				}, nil
			}
			return nil, nil
		})),
	)

	p, err := f.ExtractProfile(context.Background(), " Peter ", "Gibbons", "Initech")
	require.NoError(t, err)
	assert.Equal(t, emailfinder.Profile{
		FullName:      "Peter Gibbons",
		FirstName:     "Peter",
		LastName:      "Gibbons",
		Company:       "Initech",
		CompanyDomain: "initech.io",
	}, p)
}

func TestFindForProfile(t *testing.T) {
	f := newFinder(testConfig(), emailfinder.WithSearcher(formatSnippet("first.last@ is used by 90% of staff")))

	results, err := f.FindForProfile(context.Background(),
		emailfinder.Profile{FirstName: "John", LastName: "Smith", CompanyDomain: "ACME.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"john.smith@acme.com"}, emailfinder.Addresses(results))

	_, err = f.FindForProfile(context.Background(), emailfinder.Profile{FirstName: "John"}, nil)
	assert.ErrorIs(t, err, emailfinder.ErrMissingField)
}

func TestFindMany(t *testing.T) {
	f := newFinder(testConfig(), emailfinder.WithSearcher(formatSnippet("")))

	responses := f.FindMany(context.Background(), []emailfinder.Request{
		{FirstName: "John", LastName: "Smith", Company: "Acme"},
		{FirstName: "Ana", LastName: "Lee"},
		{FirstName: "Ana", LastName: "Lee", Company: "Acme"},
	}, 2)

	require.Len(t, responses, 3)
	assert.NoError(t, responses[0].Err)
	assert.Equal(t, "john@acme.com", responses[0].Results[2].Address)
	assert.ErrorIs(t, responses[1].Err, emailfinder.ErrMissingField)
	assert.NoError(t, responses[2].Err)
	assert.Equal(t, "acme.com", responses[2].Profile.CompanyDomain)
}
