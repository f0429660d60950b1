// Package format owns the naming-convention table and infers which
// convention a company uses from web search snippets.
package format

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/optimode/emailfinder/types"
)

// Rule says which name parts a convention needs and how to build the
// local part from them. Inputs are already normalized.
type Rule struct {
	NeedsFirst bool
	NeedsLast  bool
	Build      func(first, last string) string
}

type Entry struct {
	Token      types.FormatToken
	Rule       Rule
	Signatures []string
}

func initial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

// Table is matched in order. Longer phrases that contain shorter ones come
// first, so "first.last@" wins over "last@".
var Table = []Entry{
	{
		Token:      types.FormatFirstInitialLast,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return initial(f) + l }},
		Signatures: []string{"flast@", "first initial last name", "first initial followed by last name"},
	},
	{
		Token:      types.FormatFirstDotLast,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return f + "." + l }},
		Signatures: []string{"first.last@", "first dot last"},
	},
	{
		Token:      types.FormatFirstInitialDotLast,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return initial(f) + "." + l }},
		Signatures: []string{"f.last@", "first initial dot last name"},
	},
	{
		Token:      types.FormatFirstLast,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return f + l }},
		Signatures: []string{"firstlast@"},
	},
	{
		Token:      types.FormatFirstUnderscoreLast,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return f + "_" + l }},
		Signatures: []string{"first_last@", "first underscore last"},
	},
	{
		Token:      types.FormatLastDotFirst,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return l + "." + f }},
		Signatures: []string{"last.first@", "last dot first"},
	},
	{
		Token:      types.FormatFirstLastInitial,
		Rule:       Rule{NeedsFirst: true, NeedsLast: true, Build: func(f, l string) string { return f + initial(l) }},
		Signatures: []string{"firstl@"},
	},
	{
		Token:      types.FormatFirst,
		Rule:       Rule{NeedsFirst: true, Build: func(f, _ string) string { return f }},
		Signatures: []string{"first@"},
	},
	{
		Token:      types.FormatLast,
		Rule:       Rule{NeedsLast: true, Build: func(_, l string) string { return l }},
		Signatures: []string{"last@"},
	},
}

// DefaultFallback is used when nothing better is known about a company.
var DefaultFallback = []types.FormatToken{
	types.FormatFirstInitialLast,
	types.FormatFirstDotLast,
	types.FormatFirst,
	types.FormatFirstLast,
	types.FormatFirstUnderscoreLast,
}

// ExtraDomainSweep is generated for every caller-supplied extra domain.
var ExtraDomainSweep = []types.FormatToken{
	types.FormatFirstInitialLast,
	types.FormatFirst,
	types.FormatLast,
	types.FormatFirstDotLast,
	types.FormatFirstUnderscoreLast,
	types.FormatFirstLast,
	types.FormatFirstLastInitial,
	types.FormatLastDotFirst,
}

func Lookup(t types.FormatToken) (Entry, bool) {
	for _, e := range Table {
		if e.Token == t {
			return e, true
		}
	}
	return Entry{}, false
}

// Build returns the local part for t, or false when t is unknown or needs
// a name part that is empty.
func Build(t types.FormatToken, first, last string) (string, bool) {
	e, ok := Lookup(t)
	if !ok {
		return "", false
	}
	if (e.Rule.NeedsFirst && first == "") || (e.Rule.NeedsLast && last == "") {
		return "", false
	}
	local := e.Rule.Build(first, last)
	return local, local != ""
}

// CompanyLabel is the registrable domain without its public suffix:
// "acme" for "mail.acme.co.uk".
func CompanyLabel(domain string) string {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		suffix, _ := publicsuffix.PublicSuffix(etld1)
		return strings.TrimSuffix(etld1, "."+suffix)
	}
	label, _, _ := strings.Cut(domain, ".")
	return label
}
