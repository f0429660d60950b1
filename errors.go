package emailfinder

import "github.com/optimode/emailfinder/types"

var (
	// ErrMissingField is wrapped in an *InputError when first name, last
	// name or company is blank.
	ErrMissingField = types.ErrMissingField

	// ErrInvalidDomain is wrapped in an *InputError when a caller-supplied
	// domain is malformed.
	ErrInvalidDomain = types.ErrInvalidDomain
)
