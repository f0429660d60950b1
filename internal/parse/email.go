// Package parse turns raw addresses, domains and person names into the
// normalized forms the finder generates and probes.
package parse

import (
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email is the internal representation of a parsed email address.
// The check/ packages receive this as parameter.
type Email struct {
	Raw           string // the original, trimmed input
	Local         string // the part before @
	Domain        string // ASCII/Punycode form, used for DNS and SMTP
	DomainUnicode string // Unicode form, used for display and typo detection
	Valid         bool   // false if Raw cannot be parsed
}

// NewEmail parses an address. Raw is always populated, Valid reports success.
// Internationalized local parts (RFC 6531) and domains (IDNA2008) are accepted.
func NewEmail(raw string) Email {
	raw = strings.TrimSpace(raw)

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		addr, err = mail.ParseAddress("<" + raw + ">")
		if err != nil {
			// net/mail rejects SMTPUTF8 local parts
			return splitAt(raw)
		}
	}

	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" || domain == "" {
		return Email{Raw: raw}
	}
	return build(raw, local, domain)
}

func splitAt(raw string) Email {
	at := strings.LastIndex(raw, "@")
	if at < 1 || at >= len(raw)-1 {
		return Email{Raw: raw}
	}
	return build(raw, raw[:at], raw[at+1:])
}

func build(raw, local, domain string) Email {
	ascii, unicodeForm, ok := Domain(domain)
	if !ok {
		return Email{Raw: raw}
	}
	return Email{
		Raw:           raw,
		Local:         local,
		Domain:        ascii,
		DomainUnicode: unicodeForm,
		Valid:         true,
	}
}

// Domain lower-cases a domain, strips a trailing dot and returns its
// ASCII/Punycode and Unicode forms. ok is false when a non-ASCII domain
// fails IDNA2008 validation.
func Domain(domain string) (ascii, unicodeForm string, ok bool) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return "", "", false
	}

	for _, r := range domain {
		if r > unicode.MaxASCII {
			a, err := idna.Lookup.ToASCII(domain)
			if err != nil {
				return "", "", false
			}
			return a, domain, true
		}
	}

	// existing Punycode such as xn--mnchen-3ya.de displays as münchen.de
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}

// Fold lower-cases s and strips diacritics: "José Núñez" becomes "jose nunez".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// NamePart reduces a person's name component to characters usable in a
// local part. Whitespace is dropped, apostrophes and hyphens are kept.
func NamePart(s string) string {
	return keep(Fold(s), func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' || r == '-'
	})
}

// CompanyLabel reduces a company name to a DNS label: "Acme Corp." becomes "acmecorp".
func CompanyLabel(s string) string {
	return keep(Fold(s), func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
	})
}

func keep(s string, ok func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-'")
}
