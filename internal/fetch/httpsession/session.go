// Package httpsession is a DOM-less fetch.Session over net/http. It keeps
// cookies between navigations so consent and challenge cookies stick.
package httpsession

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/types"
)

const maxBody = 4 << 20

type Config struct {
	UserAgent string
	// Timeout bounds one navigation including the body read.
	Timeout   time.Duration
	Transport http.RoundTripper
}

type Session struct {
	client    *http.Client
	userAgent string
	content   string
}

func New(cfg Config) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "httpsession: cookie jar")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Session{
		client:    &http.Client{Jar: jar, Timeout: cfg.Timeout, Transport: cfg.Transport},
		userAgent: cfg.UserAgent,
	}, nil
}

// Factory adapts New to fetch.Factory.
func Factory(cfg Config) fetch.Factory {
	return func(context.Context) (fetch.Session, error) {
		return New(cfg)
	}
}

// Navigate loads url. 429 and 503 bodies are kept because search engines
// serve their challenge pages with those statuses.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.content = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "httpsession: build request")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return &types.TransportError{Op: "http-get", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return &types.TransportError{Op: "http-get", Err: errors.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return &types.TransportError{Op: "http-decode", Err: err}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return &types.TransportError{Op: "http-read", Err: err}
	}
	s.content = string(data)
	return nil
}

func (s *Session) Content(context.Context) (string, error) { return s.content, nil }

// Click always reports not present; there is no DOM.
func (s *Session) Click(context.Context, string) (bool, error) { return false, nil }

func (s *Session) ClickInFrame(context.Context, string, string) (bool, error) { return false, nil }

func (s *Session) Interactive() bool { return false }

func (s *Session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
