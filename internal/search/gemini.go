package search

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/types"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API base URL.
	BaseURL string
	// MaxAttempts bounds calls per query when the API is rate limited or
	// failing. Defaults to 3.
	MaxAttempts int
	// BackoffFactor^attempt seconds are waited between attempts. Defaults to 2.
	BackoffFactor float64
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSearcher asks Gemini with Google Search grounding enabled and turns
// the grounding chunks into results.
type GeminiSearcher struct {
	gen   contentGenerator
	model string

	maxAttempts int
	factor      float64
	sleep       func(context.Context, time.Duration) error
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiSearcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.New("search: GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "search: gemini client")
	}
	return newGeminiSearcher(client.Models, model, cfg), nil
}

func newGeminiSearcher(gen contentGenerator, model string, cfg GeminiConfig) *GeminiSearcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2
	}
	return &GeminiSearcher{
		gen:         gen,
		model:       model,
		maxAttempts: cfg.MaxAttempts,
		factor:      cfg.BackoffFactor,
		sleep:       fetch.Sleep,
	}
}

// Search retries rate limits, server errors and timeouts with exponential
// backoff. Any other API error ends the search at once.
func (s *GeminiSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := s.generate(ctx, query)
	if err != nil {
		return nil, noData(query, err)
	}
	results := extractResults(resp)
	if len(results) == 0 {
		return nil, noData(query, nil)
	}
	return results, nil
}

func (s *GeminiSearcher) generate(ctx context.Context, query string) (*genai.GenerateContentResponse, error) {
	contents := genai.Text(buildPrompt(query))
	cfg := &genai.GenerateContentConfig{
		Tools:          []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		CandidateCount: 1,
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.gen.GenerateContent(ctx, s.model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = classifyErr(err)
		var te *types.TransportError
		if !errors.As(lastErr, &te) || attempt == s.maxAttempts {
			break
		}
		backoff := time.Duration(math.Pow(s.factor, float64(attempt)) * float64(time.Second))
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, &types.TransportError{Op: "gemini", Err: err}
		}
	}
	return nil, lastErr
}

func buildPrompt(query string) string {
	return strings.TrimSpace(`
Search the web for the query below and summarize what the top results say, quoting short passages verbatim where possible.
Mention the official website domains you found.

Query: ` + query + `
`)
}

// classifyErr marks rate limits, server errors and network timeouts as
// transport failures.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &types.TransportError{Op: "gemini", Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &types.TransportError{Op: "gemini", Err: err}
	}
	return err
}

// extractResults maps grounding chunks to results. Every result carries the
// full response text as its snippet. Grounding URIs are redirect links, so a
// title that looks like a host name becomes the link instead.
func extractResults(resp *genai.GenerateContentResponse) []Result {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	text := strings.TrimSpace(resp.Text())

	var results []Result
	seen := make(map[string]bool)
	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			title := strings.TrimSpace(chunk.Web.Title)
			link := strings.TrimSpace(chunk.Web.URI)
			if looksLikeHost(title) {
				link = "https://" + strings.ToLower(title) + "/"
			}
			if link == "" || seen[link] {
				continue
			}
			seen[link] = true
			results = append(results, Result{Link: link, Title: title, Snippet: text})
		}
	}
	if len(results) == 0 && text != "" {
		results = append(results, Result{Snippet: text})
	}
	return results
}

func looksLikeHost(s string) bool {
	if s == "" || strings.ContainsAny(s, " /:") || !strings.Contains(s, ".") {
		return false
	}
	return !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".")
}
