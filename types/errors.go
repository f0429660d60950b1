package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is wrapped by InputError when a required field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidDomain is wrapped by InputError when a domain cannot be probed.
	ErrInvalidDomain = errors.New("invalid domain")
)

// TransportError is a DNS, HTTP or SMTP connection-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ChallengeError reports an unresolved bot-mitigation page.
type ChallengeError struct {
	URL    string
	Marker string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("challenge page at %s (marker %q)", e.URL, e.Marker)
}

// ProtocolError is an unexpected SMTP reply in the middle of a session.
type ProtocolError struct {
	Step    string
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smtp %s: unexpected reply %d %s", e.Step, e.Code, e.Message)
}

// InputError is the only error surfaced to callers as a request failure.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
