package format

import (
	"context"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailfinder/internal/search"
	"github.com/optimode/emailfinder/types"
)

const (
	SourceKnown    = "known"
	SourceSearch   = "search"
	SourceFallback = "fallback"
)

type Config struct {
	// Queries may contain {company} and {domain}.
	Queries          []string
	MinSnippetLength int
	Fallback         []types.FormatToken
	// Known maps a company label to its convention and skips searching.
	Known map[string]types.FormatToken
	// Signatures replaces the phrases of the given tokens.
	Signatures map[types.FormatToken][]string
}

type Inference struct {
	Formats []types.FormatToken
	Source  string
}

type signature struct {
	token  types.FormatToken
	phrase string
}

// Engine infers a company's naming convention. It never fails; when the
// search gives nothing it returns the fallback list.
type Engine struct {
	searcher   search.Searcher
	cfg        Config
	signatures []signature
	log        logrus.FieldLogger
}

func NewEngine(searcher search.Searcher, cfg Config, log logrus.FieldLogger) *Engine {
	if len(cfg.Fallback) == 0 {
		cfg.Fallback = DefaultFallback
	}
	if cfg.MinSnippetLength <= 0 {
		cfg.MinSnippetLength = 20
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	var sigs []signature
	for _, e := range Table {
		phrases := e.Signatures
		if override, ok := cfg.Signatures[e.Token]; ok {
			phrases = override
		}
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				sigs = append(sigs, signature{token: e.Token, phrase: p})
			}
		}
	}
	return &Engine{searcher: searcher, cfg: cfg, signatures: sigs, log: log}
}

// InferFormats returns the inferred conventions, never an empty list.
func (e *Engine) InferFormats(ctx context.Context, domain string) []types.FormatToken {
	return e.Infer(ctx, domain).Formats
}

func (e *Engine) Infer(ctx context.Context, domain string) Inference {
	label := CompanyLabel(domain)
	log := e.log.WithField("domain", domain)

	if t, ok := e.cfg.Known[label]; ok {
		log.WithField("format", t).Debug("known email format")
		return Inference{Formats: []types.FormatToken{t}, Source: SourceKnown}
	}

	if e.searcher != nil {
		for _, q := range e.cfg.Queries {
			if ctx.Err() != nil {
				break
			}
			query := strings.NewReplacer("{company}", label, "{domain}", domain).Replace(q)
			results, err := e.searcher.Search(ctx, query)
			if err != nil {
				log.WithError(err).WithField("query", query).Debug("format search returned no data")
				continue
			}
			snippets := make([]string, 0, len(results))
			for _, r := range results {
				snippets = append(snippets, r.Snippet)
			}
			if t, ok := e.Match(snippets); ok {
				log.WithField("format", t).Info("email format found in search results")
				return Inference{Formats: []types.FormatToken{t}, Source: SourceSearch}
			}
		}
	}

	log.Debug("no email format found, using fallback list")
	return Inference{Formats: slices.Clone(e.cfg.Fallback), Source: SourceFallback}
}

// Match scans snippets in order against the signature table in table order
// and returns the first hit. Snippets not longer than MinSnippetLength are
// ignored.
func (e *Engine) Match(snippets []string) (types.FormatToken, bool) {
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if len(s) <= e.cfg.MinSnippetLength {
			continue
		}
		s = strings.ToLower(s)
		for _, sig := range e.signatures {
			if strings.Contains(s, sig.phrase) {
				return sig.token, true
			}
		}
	}
	return types.FormatUnknown, false
}
