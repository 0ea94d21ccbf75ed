// ABOUTME: NewsAPI-backed NewsProvider over plain HTTP
// ABOUTME: Fetches top headlines for a country and normalizes to Article pairs

package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultNewsBaseURL = "https://newsapi.org"

// NewsClient implements NewsProvider against the NewsAPI top-headlines
// endpoint.
type NewsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewNewsClient creates a headline client for the given API key.
func NewNewsClient(apiKey string) *NewsClient {
	return &NewsClient{
		apiKey:     apiKey,
		baseURL:    defaultNewsBaseURL,
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
}

// newsResponse is the subset of the upstream payload we consume
type newsResponse struct {
	Articles []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"articles"`
}

// TopHeadlines fetches the feed for a lowercase 2-letter country code.
// Articles come back in upstream order; the service layer caps the count.
func (c *NewsClient) TopHeadlines(ctx context.Context, country string) ([]Article, error) {
	query := url.Values{}
	query.Set("country", country)
	query.Set("apiKey", c.apiKey)

	reqURL := c.baseURL + "/v2/top-headlines?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news upstream returned status %d", resp.StatusCode)
	}

	var payload newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding news response: %w", err)
	}

	articles := make([]Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		articles = append(articles, Article{Title: a.Title, URL: a.URL})
	}
	return articles, nil
}

// Ensure NewsClient implements NewsProvider
var _ NewsProvider = (*NewsClient)(nil)
