package check

import (
	"context"
	"strings"
	"unicode"

	"github.com/optimode/emailfinder/internal/parse"
	"github.com/optimode/emailfinder/types"
)

// SyntaxChecker accepts dot-atom addresses whose domain has at least two
// labels. Quoted local parts and IP literals are rejected: neither can be
// produced from a person's name nor probed through MX.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

// Valid is a shorthand for Check(...).Passed.
func (c *SyntaxChecker) Valid(address string) bool {
	return c.Check(context.Background(), parse.NewEmail(address)).Passed
}

func (c *SyntaxChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	fail := func(details string) types.CheckResult {
		return types.CheckResult{Level: types.LevelSyntax, Passed: false, Details: details, Reason: "bad-format"}
	}

	if email.Raw == "" {
		return fail("empty email address")
	}
	if !email.Valid {
		return fail("invalid email syntax")
	}

	// RFC 5321 limits
	if len(email.Raw) > 254 {
		return fail("email address exceeds 254 characters")
	}
	if len(email.Local) > 64 {
		return fail("local part exceeds 64 characters")
	}

	if msg := validateLocal(email.Local); msg != "" {
		return fail(msg)
	}
	if msg := validateDomain(email.DomainUnicode); msg != "" {
		return fail(msg)
	}

	return types.CheckResult{Level: types.LevelSyntax, Passed: true, Details: "syntax ok"}
}

// validateLocal returns error text, or "" if ok.
// RFC 6531 (SMTPUTF8) characters are allowed.
func validateLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}

	const asciiSpecial = "!#$%&'*+/=?^_`{|}~-."

	for _, ch := range local {
		if ch > unicode.MaxASCII {
			if unicode.IsControl(ch) || unicode.IsSpace(ch) {
				return "local part contains control or space character"
			}
			continue
		}
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		if !strings.ContainsRune(asciiSpecial, ch) {
			return "local part contains invalid character: " + string(ch)
		}
	}

	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}
	return ""
}

// validateDomain validates the Unicode form of the domain.
// Returns error text, or "" if ok.
func validateDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}
	if strings.HasPrefix(domain, "[") {
		return "IP literal domains are not probed"
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "domain must have at least two labels"
	}

	for _, label := range labels {
		switch {
		case label == "":
			return "domain contains empty label (consecutive dots)"
		case len(label) > 63:
			return "domain label exceeds 63 characters"
		case strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-"):
			return "domain label cannot start or end with a hyphen"
		}
		for _, ch := range label {
			if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' {
				return "domain label contains invalid character: " + string(ch)
			}
		}
	}

	tld := labels[len(labels)-1]
	if strings.IndexFunc(tld, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return "TLD cannot be all digits"
	}
	return ""
}
