package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/internal/pattern"
	"github.com/optimode/emailfinder/types"
)

func addresses(cs []types.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Address)
	}
	return out
}

func TestGenerate_KnownFormat(t *testing.T) {
	p := types.Profile{FirstName: "John", LastName: "Smith", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, []types.FormatToken{types.FormatFirstDotLast}, nil)

	assert.Equal(t, []types.Candidate{{
		Address: "john.smith@acme.com",
		Format:  types.FormatFirstDotLast,
		Domain:  "acme.com",
		Source:  types.SourceConvention,
	}}, got)
}

func TestGenerate_FallbackList(t *testing.T) {
	p := types.Profile{FirstName: "John", LastName: "Smith", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, nil, nil)

	assert.Equal(t, []string{
		"jsmith@acme.com",
		"john.smith@acme.com",
		"john@acme.com",
		"johnsmith@acme.com",
		"john_smith@acme.com",
	}, addresses(got))
	for _, c := range got {
		assert.Equal(t, types.SourceFallback, c.Source)
	}
}

func TestGenerate_ExtraDomainSweep(t *testing.T) {
	p := types.Profile{FirstName: "Ana", LastName: "Lee", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, []types.FormatToken{types.FormatFirst}, []string{"Example.org"})

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
	}, addresses(got))
	assert.Equal(t, types.SourceExtraDomain, got[1].Source)
	assert.Equal(t, "example.org", got[1].Domain)
}

func TestGenerate_SkipsRulesNeedingMissingParts(t *testing.T) {
	p := types.Profile{FirstName: "", LastName: "Smith", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, nil, []string{"example.org"})

	assert.Equal(t, []string{"smith@example.org"}, addresses(got))
}

func TestGenerate_NormalizesNames(t *testing.T) {
	p := types.Profile{FirstName: "José María", LastName: "O'Núñez-Ruiz", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, []types.FormatToken{types.FormatFirstDotLast, types.FormatFirstInitialLast}, nil)

	assert.Equal(t, []string{"josemaria.o'nunez-ruiz@acme.com", "jo'nunez-ruiz@acme.com"}, addresses(got))
}

func TestGenerate_DropsDuplicatesKeepingFirst(t *testing.T) {
	p := types.Profile{FirstName: "Ana", LastName: "Lee", CompanyDomain: "acme.com"}

	got := pattern.Generate(p, []types.FormatToken{types.FormatFirst, types.FormatFirstInitialLast}, []string{"acme.com"})

	addrs := addresses(got)
	assert.Equal(t, "ana@acme.com", addrs[0])
	assert.Equal(t, "alee@acme.com", addrs[1])
	assert.Len(t, addrs, 8)
	assert.Equal(t, types.SourceConvention, got[0].Source)
}

func TestGenerate_EveryAddressPassesSyntax(t *testing.T) {
	syntax := check.NewSyntaxChecker()
	p := types.Profile{FirstName: "  -Zoë- ", LastName: "van der Berg", CompanyDomain: "acme.co.uk"}

	got := pattern.Generate(p, nil, []string{"example.org", "beispiel.de"})

	assert.NotEmpty(t, got)
	for _, c := range got {
		assert.True(t, syntax.Valid(c.Address), c.Address)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	p := types.Profile{FirstName: "Ana", LastName: "Lee", CompanyDomain: "acme.com"}
	assert.Equal(t,
		pattern.Generate(p, nil, []string{"example.org"}),
		pattern.Generate(p, nil, []string{"example.org"}))
}

func TestGenerator_CustomFallback(t *testing.T) {
	g := pattern.NewGenerator([]types.FormatToken{types.FormatLastDotFirst})
	p := types.Profile{FirstName: "Ana", LastName: "Lee", CompanyDomain: "acme.com"}

	assert.Equal(t, []string{"lee.ana@acme.com"}, addresses(g.Generate(p, nil, nil)))
}
