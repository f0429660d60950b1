package search_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailfinder/config"
	"github.com/optimode/emailfinder/internal/fetch"
	"github.com/optimode/emailfinder/internal/search"
	"github.com/optimode/emailfinder/types"
)

type fakeFetcher struct {
	content string
	fail    bool
	urls    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) fetch.Result {
	f.urls = append(f.urls, u)
	if f.fail {
		return fetch.Result{
			Attempts: 3,
			State:    fetch.StateExhaustedRetries,
			Err:      &types.TransportError{Op: "fetch", Err: &types.ChallengeError{URL: u, Marker: "captcha"}},
		}
	}
	return fetch.Result{Success: true, Content: f.content, Attempts: 1, State: fetch.StateSuccess}
}

const resultPage = `<html><body><div id="search">
<div class="g"><div class="tF2Cxc">
  <div class="yuRUbf"><a href="https://www.acme.com/about"><h3>Acme Corp - Official Site</h3></a></div>
  <div class="VwiC3b">Acme builds rockets and anvils for discerning coyotes.</div>
</div></div>
<div class="g"><div class="tF2Cxc">
  <div class="yuRUbf"><a href="/url?q=https://www.linkedin.com/company/acme&amp;sa=U"><h3>Acme | LinkedIn</h3></a></div>
  <span class="aCOpRe">Acme email format typically follows the pattern of first.last@acme.com</span>
</div></div>
</div></body></html>`

func TestScrapeSearcher_Search(t *testing.T) {
	f := &fakeFetcher{content: resultPage}
	s := search.NewScrape(f, search.ScrapeConfig{BaseURL: "https://search.test/search"})

	results, err := s.Search(context.Background(), "acme official website")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "https://www.acme.com/about", results[0].Link)
	assert.Equal(t, "Acme Corp - Official Site", results[0].Title)
	assert.Contains(t, results[0].Snippet, "rockets")
	assert.Equal(t, "https://www.linkedin.com/company/acme", results[1].Link)
	assert.Contains(t, results[1].Snippet, "first.last@acme.com")

	require.Len(t, f.urls, 1)
	u, err := url.Parse(f.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "acme official website", u.Query().Get("q"))
	assert.Equal(t, "en", u.Query().Get("hl"))
}

func TestScrapeSearcher_LooseSnippets(t *testing.T) {
	page := `<html><body><div class="VwiC3b">The most common Acme email format is flast@acme.com</div></body></html>`
	s := search.NewScrape(&fakeFetcher{content: page}, search.ScrapeConfig{})

	results, err := s.Search(context.Background(), "acme email format")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Link)
	assert.Contains(t, results[0].Snippet, "flast@acme.com")
}

func TestScrapeSearcher_FetchFailureIsNoData(t *testing.T) {
	s := search.NewScrape(&fakeFetcher{fail: true}, search.ScrapeConfig{})

	results, err := s.Search(context.Background(), "acme")
	assert.Nil(t, results)
	assert.ErrorIs(t, err, search.ErrNoData)
}

func TestAPISearcher_Search(t *testing.T) {
	f := &fakeFetcher{content: `{"items":[
		{"link":"https://acme.com/","title":"Acme","snippet":"Official site"},
		{"link":" https://en.wikipedia.org/wiki/Acme ","title":"Acme - Wikipedia","snippet":"Acme is..."}
	]}`}
	s := search.NewAPI(f, search.APIConfig{URL: "https://api.test/customsearch/v1", Key: "k", EngineID: "cx1"})

	results, err := s.Search(context.Background(), "acme official website")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://acme.com/", results[0].Link)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Acme", results[1].Link)

	u, err := url.Parse(f.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "k", u.Query().Get("key"))
	assert.Equal(t, "cx1", u.Query().Get("cx"))
	assert.Equal(t, "acme official website", u.Query().Get("q"))
}

func TestAPISearcher_BrowserWrappedJSON(t *testing.T) {
	f := &fakeFetcher{content: `<html><head></head><body><pre>{"items":[{"link":"https://acme.com/","title":"Acme","snippet":"Official site"}]}</pre></body></html>`}
	s := search.NewAPI(f, search.APIConfig{})

	results, err := s.Search(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.com/", results[0].Link)
}

func TestAPISearcher_BadJSON(t *testing.T) {
	s := search.NewAPI(&fakeFetcher{content: "<html>captcha</html>"}, search.APIConfig{})

	_, err := s.Search(context.Background(), "acme")
	assert.ErrorIs(t, err, search.ErrNoData)
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}

	s, err := search.New(ctx, config.SearchConfig{Provider: "scrape"}, f)
	require.NoError(t, err)
	assert.IsType(t, &search.ScrapeSearcher{}, s)

	s, err = search.New(ctx, config.SearchConfig{Provider: "api", APIKey: "k", EngineID: "cx"}, f)
	require.NoError(t, err)
	assert.IsType(t, &search.APISearcher{}, s)

	_, err = search.New(ctx, config.SearchConfig{Provider: "gemini"}, f)
	assert.Error(t, err)

	_, err = search.New(ctx, config.SearchConfig{Provider: "bing"}, f)
	assert.Error(t, err)
}
