// Package browser is a fetch.Session driving a real Chrome tab through the
// DevTools protocol.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/types"
)

type Config struct {
	Headless        bool
	UserAgent       string
	PageLoadTimeout time.Duration
	// WaitSelector is the element whose readiness marks a loaded page.
	WaitSelector string
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

type Session struct {
	cfg         Config
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// New starts Chrome and opens one tab. The browser lives until Close,
// independent of ctx cancellation.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = 15 * time.Second
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "body"
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run launches the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &types.TransportError{Op: "browser-start", Err: err}
	}
	return &Session{cfg: cfg, ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Factory adapts New to fetch.Factory.
func Factory(cfg Config) fetch.Factory {
	return func(ctx context.Context) (fetch.Session, error) {
		return New(ctx, cfg)
	}
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(opCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Navigate(url)); err != nil {
		return &types.TransportError{Op: "navigate", Err: err}
	}
	err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.WaitReady(s.cfg.WaitSelector, chromedp.ByQuery))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fetch.ErrWaitTimeout
	default:
		return &types.TransportError{Op: "wait-ready", Err: err}
	}
}

func (s *Session) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &types.TransportError{Op: "content", Err: err}
	}
	return html, nil
}

func (s *Session) Click(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, errors.Wrapf(err, "browser: query %s", selector)
	}
	if len(nodes) == 0 {
		return false, nil
	}
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.MouseClickNode(nodes[0])); err != nil {
		return false, errors.Wrapf(err, "browser: click %s", selector)
	}
	return true, nil
}

// ClickInFrame queries selector inside the first matching iframe's document.
// Later queries run against the top document again.
func (s *Session) ClickInFrame(ctx context.Context, frameSelector, selector string) (bool, error) {
	var frames []*cdp.Node
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Nodes(frameSelector, &frames, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, errors.Wrapf(err, "browser: query frame %s", frameSelector)
	}
	if len(frames) == 0 {
		return false, nil
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.PageLoadTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.FromNode(frames[0]), chromedp.AtLeast(0))); err != nil {
		return false, errors.Wrapf(err, "browser: query %s in frame", selector)
	}
	if len(nodes) == 0 {
		return false, nil
	}
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.MouseClickNode(nodes[0])); err != nil {
		return false, errors.Wrapf(err, "browser: click %s in frame", selector)
	}
	return true, nil
}

func (s *Session) Interactive() bool { return !s.cfg.Headless }

func (s *Session) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
