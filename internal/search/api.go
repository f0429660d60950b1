package search

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

type APIConfig struct {
	URL      string
	Key      string
	EngineID string
}

// APISearcher queries the Google Custom Search JSON API.
type APISearcher struct {
	fetcher Fetcher
	cfg     APIConfig
}

func NewAPI(f Fetcher, cfg APIConfig) *APISearcher {
	if cfg.URL == "" {
		cfg.URL = "https://www.googleapis.com/customsearch/v1"
	}
	return &APISearcher{fetcher: f, cfg: cfg}
}

type apiResponse struct {
	Items []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (s *APISearcher) Search(ctx context.Context, query string) ([]Result, error) {
	u := s.cfg.URL + "?" + url.Values{
		"key": {s.cfg.Key},
		"cx":  {s.cfg.EngineID},
		"q":   {query},
		"num": {"10"},
	}.Encode()

	res := s.fetcher.Fetch(ctx, u)
	if !res.Success {
		return nil, noData(query, res.Err)
	}

	var body apiResponse
	if err := json.Unmarshal([]byte(jsonBody(res.Content)), &body); err != nil {
		return nil, noData(query, errors.Wrap(err, "decode custom search response"))
	}
	results := make([]Result, 0, len(body.Items))
	for _, it := range body.Items {
		results = append(results, Result{
			Link:    strings.TrimSpace(it.Link),
			Title:   strings.TrimSpace(it.Title),
			Snippet: strings.TrimSpace(it.Snippet),
		})
	}
	return results, nil
}

// jsonBody strips the HTML wrapper a browser session puts around a JSON
// document.
func jsonBody(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") {
		return trimmed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return trimmed
	}
	return strings.TrimSpace(doc.Find("body").Text())
}
