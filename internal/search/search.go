// Package search runs web searches for the domain resolver and the format
// inference engine. Every provider degrades to ErrNoData instead of failing
// the pipeline.
package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/optimode/emailfinder/config"
	"github.com/optimode/emailfinder/internal/fetch"
)

// ErrNoData means the provider could not produce results, usually because
// the fetcher exhausted its retries.
var ErrNoData = errors.New("search: no data")

type Result struct {
	Link    string
	Title   string
	Snippet string
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Fetcher is the subset of fetch.Fetcher the providers need.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// New builds the provider named by cfg.Provider. The scrape and api
// providers go through f; gemini talks to the API directly.
func New(ctx context.Context, cfg config.SearchConfig, f Fetcher) (Searcher, error) {
	switch cfg.Provider {
	case "", "scrape":
		return NewScrape(f, ScrapeConfig{
			BaseURL:         cfg.BaseURL,
			ResultSelector:  cfg.ResultSelector,
			LinkSelector:    cfg.LinkSelector,
			TitleSelector:   cfg.TitleSelector,
			SnippetSelector: cfg.SnippetSelector,
		}), nil
	case "api":
		return NewAPI(f, APIConfig{URL: cfg.APIURL, Key: cfg.APIKey, EngineID: cfg.EngineID}), nil
	case "gemini":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL})
	default:
		return nil, errors.Errorf("search: unknown provider %q", cfg.Provider)
	}
}

func noData(query string, cause error) error {
	if cause == nil {
		return errors.Wrapf(ErrNoData, "%q", query)
	}
	return errors.Wrapf(ErrNoData, "%q: %v", query, cause)
}
