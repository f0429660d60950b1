// Package fetch loads search pages through a Session and hides retries,
// backoff and bot-challenge handling behind Fetcher.Fetch.
package fetch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitTimeout is returned by Session.Navigate when the page was requested
// but the completion signal did not arrive in time. The content may still
// be usable, so the fetcher does not treat it as a failure.
var ErrWaitTimeout = errors.New("fetch: page load wait timed out")

// Session is one exclusively owned page session: a browser tab or an HTTP
// client with its own cookie jar.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	// Click clicks the first element matching selector. It reports false
	// when nothing matches.
	Click(ctx context.Context, selector string) (bool, error)
	// ClickInFrame clicks selector inside the first frame matching frameSelector.
	ClickInFrame(ctx context.Context, frameSelector, selector string) (bool, error)
	// Interactive reports whether a human can see and solve the page.
	Interactive() bool
	Close() error
}

// Factory opens a new Session.
type Factory func(ctx context.Context) (Session, error)

// LazySession defers opening the underlying session until first use and
// closes it at most once.
type LazySession struct {
	factory Factory

	mu      sync.Mutex
	session Session
	closed  bool
	once    sync.Once
	err     error
}

var errSessionClosed = errors.New("fetch: session closed")

func NewLazySession(factory Factory) *LazySession {
	return &LazySession{factory: factory}
}

// Acquired reports whether the underlying session was ever opened.
func (l *LazySession) Acquired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil
}

func (l *LazySession) get(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errSessionClosed
	}
	if l.session == nil {
		s, err := l.factory(ctx)
		if err != nil {
			return nil, err
		}
		l.session = s
	}
	return l.session, nil
}

func (l *LazySession) Navigate(ctx context.Context, url string) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Navigate(ctx, url)
}

func (l *LazySession) Content(ctx context.Context) (string, error) {
	s, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return s.Content(ctx)
}

func (l *LazySession) Click(ctx context.Context, selector string) (bool, error) {
	s, err := l.get(ctx)
	if err != nil {
		return false, err
	}
	return s.Click(ctx, selector)
}

func (l *LazySession) ClickInFrame(ctx context.Context, frameSelector, selector string) (bool, error) {
	s, err := l.get(ctx)
	if err != nil {
		return false, err
	}
	return s.ClickInFrame(ctx, frameSelector, selector)
}

// Interactive does not open the session; an unopened session is not interactive.
func (l *LazySession) Interactive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil && l.session.Interactive()
}

// Close releases the session if it was opened. Safe to call multiple times.
func (l *LazySession) Close() error {
	l.once.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.closed = true
		if l.session != nil {
			l.err = l.session.Close()
		}
	})
	return l.err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
