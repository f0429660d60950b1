package fetch

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/optimode/emailfinder/types"
)

// State is the fetcher's position in one Fetch call.
type State int

const (
	StateIdle State = iota
	StateNavigating
	StateChallengeDetected
	StateChallengeResolving
	StateSuccess
	StateExhaustedRetries
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StateChallengeDetected:
		return "challenge-detected"
	case StateChallengeResolving:
		return "challenge-resolving"
	case StateSuccess:
		return "success"
	case StateExhaustedRetries:
		return "exhausted-retries"
	default:
		return "unknown"
	}
}

// Config controls retries and challenge handling.
type Config struct {
	MaxAttempts   int
	BackoffFactor float64
	// ManualSolveWait is how long an interactive session waits for a human
	// to clear a challenge.
	ManualSolveWait time.Duration
	// Markers are matched case-insensitively against the page content.
	// A nil list disables challenge detection.
	Markers           []string
	ContinueSelectors []string
	FrameSelectors    []string
	CheckboxSelector  string
	// RateLimit is navigations per second; 0 disables it.
	RateLimit float64
}

// Result is the outcome of one Fetch call. Success implies Content holds
// challenge-free page content.
type Result struct {
	Success  bool
	Content  string
	Attempts int
	State    State
	Err      error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for attempt and challenge events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Fetcher) { f.log = log }
}

// WithSleep replaces the backoff and manual-wait sleep, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithObserver receives every state transition.
func WithObserver(fn func(State)) Option {
	return func(f *Fetcher) { f.observe = fn }
}

// Fetcher retrieves pages over a single Session. It is not safe for
// concurrent use; each pipeline owns its own.
type Fetcher struct {
	session Session
	cfg     Config
	limiter *rate.Limiter
	log     logrus.FieldLogger
	sleep   func(context.Context, time.Duration) error
	observe func(State)
}

func New(session Session, cfg Config, opts ...Option) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2
	}
	f := &Fetcher{
		session: session,
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		sleep:   Sleep,
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to url and returns its content, retrying with
// exponential backoff (BackoffFactor^attempt seconds) and trying to clear
// bot challenges in between. It never panics on transport failures; they
// come back in Result.Err.
func (f *Fetcher) Fetch(ctx context.Context, url string) Result {
	res := Result{State: StateIdle}
	log := f.log.WithField("url", url)
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		content, err := f.attempt(ctx, url, &res)
		if err == nil {
			res.Success, res.Content = true, content
			f.transition(&res, StateSuccess)
			return res
		}
		lastErr = err
		log.WithField("attempt", attempt).WithError(err).Debug("fetch attempt failed")

		if attempt < f.cfg.MaxAttempts {
			backoff := time.Duration(math.Pow(f.cfg.BackoffFactor, float64(attempt)) * float64(time.Second))
			if err := f.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}
		}
	}

	f.transition(&res, StateExhaustedRetries)
	res.Err = &types.TransportError{Op: "fetch", Err: lastErr}
	log.WithError(lastErr).WithField("attempts", res.Attempts).Warn("fetch exhausted retries")
	return res
}

func (f *Fetcher) attempt(ctx context.Context, url string, res *Result) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	f.transition(res, StateNavigating)
	if err := f.session.Navigate(ctx, url); err != nil && !errors.Is(err, ErrWaitTimeout) {
		return "", errors.Wrap(err, "navigate")
	}

	content, err := f.session.Content(ctx)
	if err != nil {
		return "", errors.Wrap(err, "read content")
	}

	marker := f.challengeMarker(content)
	if marker == "" {
		return content, nil
	}

	f.transition(res, StateChallengeDetected)
	f.log.WithField("url", url).WithField("marker", marker).Info("challenge detected")

	f.transition(res, StateChallengeResolving)
	content, marker = f.resolve(ctx, content, marker)
	if marker == "" {
		return content, nil
	}
	return "", &types.ChallengeError{URL: url, Marker: marker}
}

// resolve runs the escalation steps in order and re-inspects the page after
// each one. It returns the content and the marker still present, if any.
func (f *Fetcher) resolve(ctx context.Context, content, marker string) (string, string) {
	steps := []func() bool{
		func() bool { return f.clickFirst(ctx) },
		func() bool { return f.clickCheckbox(ctx) },
		func() bool {
			if !f.session.Interactive() || f.cfg.ManualSolveWait <= 0 {
				return false
			}
			f.log.WithField("wait", f.cfg.ManualSolveWait).Info("waiting for manual challenge solve")
			return f.sleep(ctx, f.cfg.ManualSolveWait) == nil
		},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		if !step() {
			continue
		}
		c, err := f.session.Content(ctx)
		if err != nil {
			continue
		}
		content, marker = c, f.challengeMarker(c)
		if marker == "" {
			return content, ""
		}
	}
	return content, marker
}

func (f *Fetcher) clickFirst(ctx context.Context) bool {
	for _, sel := range f.cfg.ContinueSelectors {
		ok, err := f.session.Click(ctx, sel)
		if err != nil {
			f.log.WithError(err).WithField("selector", sel).Debug("continue click failed")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *Fetcher) clickCheckbox(ctx context.Context) bool {
	if f.cfg.CheckboxSelector == "" {
		return false
	}
	for _, frame := range f.cfg.FrameSelectors {
		ok, err := f.session.ClickInFrame(ctx, frame, f.cfg.CheckboxSelector)
		if err != nil {
			f.log.WithError(err).WithField("frame", frame).Debug("checkbox click failed")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *Fetcher) challengeMarker(content string) string {
	if len(f.cfg.Markers) == 0 {
		return ""
	}
	lower := strings.ToLower(content)
	for _, m := range f.cfg.Markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return m
		}
	}
	return ""
}

func (f *Fetcher) transition(res *Result, s State) {
	f.log.WithField("from", res.State).WithField("to", s).Debug("fetch state")
	res.State = s
	if f.observe != nil {
		f.observe(s)
	}
}
