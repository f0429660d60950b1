package check_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/emailfinder/check"
	"github.com/optimode/emailfinder/internal/parse"
)

func TestSyntaxChecker(t *testing.T) {
	c := check.NewSyntaxChecker()
	ctx := context.Background()

	tests := []struct {
		name   string
		email  string
		wantOK bool
	}{
		{"first.last", "john.smith@acme.com", true},
		{"flast", "jsmith@acme.com", true},
		{"underscore", "john_smith@acme.com", true},
		{"apostrophe", "o'brien@acme.com", true},
		{"subdomain", "ana@mail.acme.co.uk", true},
		{"IDN domain", "ana@münchen.de", true},
		{"EAI local", "用户@example.com", true},
		{"empty", "", false},
		{"no at sign", "johnacme.com", false},
		{"no domain", "john@", false},
		{"no local", "@acme.com", false},
		{"single label domain", "john@localhost", false},
		{"double dot local", "john..smith@acme.com", false},
		{"leading dot local", ".john@acme.com", false},
		{"trailing dot local", "john.@acme.com", false},
		{"consecutive dots domain", "john@acme..com", false},
		{"numeric TLD", "john@acme.123", false},
		{"label starts with hyphen", "john@-acme.com", false},
		{"quoted local", `"john smith"@acme.com`, false},
		{"IP literal", "john@[192.0.2.1]", false},
		{"too long local", strings.Repeat("a", 65) + "@acme.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Check(ctx, parse.NewEmail(tt.email))
			assert.Equal(t, tt.wantOK, result.Passed, "Details: %s", result.Details)
			if !tt.wantOK {
				assert.Equal(t, "bad-format", result.Reason)
			}
			assert.Equal(t, tt.wantOK, c.Valid(tt.email))
		})
	}
}
