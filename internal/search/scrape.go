package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type ScrapeConfig struct {
	BaseURL         string
	ResultSelector  string
	LinkSelector    string
	TitleSelector   string
	SnippetSelector string
}

// ScrapeSearcher parses a search engine's HTML result page.
type ScrapeSearcher struct {
	fetcher Fetcher
	cfg     ScrapeConfig
}

func NewScrape(f Fetcher, cfg ScrapeConfig) *ScrapeSearcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.google.com/search"
	}
	if cfg.ResultSelector == "" {
		cfg.ResultSelector = ".tF2Cxc, .g"
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = ".yuRUbf a, a"
	}
	if cfg.TitleSelector == "" {
		cfg.TitleSelector = "h3"
	}
	if cfg.SnippetSelector == "" {
		cfg.SnippetSelector = ".VwiC3b, .aCOpRe"
	}
	return &ScrapeSearcher{fetcher: f, cfg: cfg}
}

// URL returns the result page address for query.
func (s *ScrapeSearcher) URL(query string) string {
	return s.cfg.BaseURL + "?" + url.Values{"q": {query}, "hl": {"en"}}.Encode()
}

func (s *ScrapeSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	res := s.fetcher.Fetch(ctx, s.URL(query))
	if !res.Success {
		return nil, noData(query, res.Err)
	}
	results, err := s.Parse(res.Content)
	if err != nil {
		return nil, noData(query, err)
	}
	return results, nil
}

// Parse extracts results in page order. When no result container matches,
// loose snippets are returned on their own.
func (s *ScrapeSearcher) Parse(html string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []Result
	seen := make(map[Result]bool)
	add := func(r Result) {
		if (r.Link == "" && r.Snippet == "") || seen[r] {
			return
		}
		seen[r] = true
		results = append(results, r)
	}

	// Nested containers match twice; only the innermost one is used.
	doc.Find(s.cfg.ResultSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.Find(s.cfg.ResultSelector).Length() > 0 {
			return
		}
		href, _ := sel.Find(s.cfg.LinkSelector).First().Attr("href")
		add(Result{
			Link:    cleanLink(href),
			Title:   strings.TrimSpace(sel.Find(s.cfg.TitleSelector).First().Text()),
			Snippet: strings.TrimSpace(sel.Find(s.cfg.SnippetSelector).First().Text()),
		})
	})
	if len(results) > 0 {
		return results, nil
	}

	doc.Find(s.cfg.SnippetSelector).Each(func(_ int, sel *goquery.Selection) {
		add(Result{Snippet: strings.TrimSpace(sel.Text())})
	})
	return results, nil
}

// cleanLink unwraps Google's "/url?q=" redirect links and drops anything
// that is not an absolute http(s) URL.
func cleanLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("q")
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return href
}
