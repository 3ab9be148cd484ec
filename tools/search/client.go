// Package search provides web search, crawl and answer tools backed by an
// Exa-compatible search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/internal/normalize"
)

const serviceID = "search"

// modeProfile is what one search mode asks of the API.
type modeProfile struct {
	apiType    string
	numResults int
	textChars  int
	highlights bool
	summary    bool
}

var profiles = map[core.SearchMode]modeProfile{
	core.SearchFast: {apiType: "fast", numResults: 3, highlights: true},
	core.SearchAuto: {apiType: "auto", numResults: 5, textChars: 1500, highlights: true},
	core.SearchDeep: {apiType: "deep", numResults: 8, textChars: 4000, summary: true},
}

func profileFor(mode core.SearchMode) modeProfile {
	if p, ok := profiles[mode]; ok {
		return p
	}
	return profiles[core.SearchAuto]
}

// Client calls the search API. It rotates across its keys on rate limits.
// Client is safe for concurrent use.
type Client struct {
	config Config
	keys   *core.KeyRotator
}

// New creates a client over one or more API keys.
func New(keys []string, opts ...Option) (*Client, error) {
	rotator, err := core.NewKeyRotator(keys...)
	if err != nil {
		return nil, err
	}
	cfg := Config{
		BaseURL:      DefaultBaseURL,
		HTTPClient:   http.DefaultClient,
		MaxTextChars: 6000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry == nil {
		cfg.Retry = core.NewRetryPolicy(core.RetryConfig{Logger: cfg.Logger})
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{config: cfg, keys: rotator}, nil
}

// Search runs a query. Unset fields of req follow req.Mode.
func (c *Client) Search(ctx context.Context, req Request) (*Results, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("search: empty query")
	}
	p := profileFor(req.Mode)
	body := searchBody{
		Query:          req.Query,
		Type:           p.apiType,
		NumResults:     req.NumResults,
		Category:       req.Category,
		IncludeDomains: req.Domains,
		Contents: &contentsSpec{
			Highlights: p.highlights,
			Summary:    p.summary,
		},
	}
	if body.NumResults <= 0 {
		body.NumResults = p.numResults
	}
	if p.textChars > 0 {
		body.Contents.Text = &textSpec{MaxCharacters: p.textChars}
	}

	var env resultsEnvelope
	if err := c.post(ctx, "/search", body, &env); err != nil {
		return nil, err
	}
	out := &Results{Query: req.Query, Items: make([]Result, 0, len(env.Results))}
	for _, r := range env.Results {
		out.Items = append(out.Items, r.Result)
	}
	return out, nil
}

// Contents fetches the text of url and, when subpages > 0, of up to that
// many linked pages on the same site.
func (c *Client) Contents(ctx context.Context, url string, subpages int) (*Page, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("search: empty url")
	}
	body := contentsBody{
		URLs:      []string{url},
		Text:      &textSpec{MaxCharacters: c.config.MaxTextChars},
		Subpages:  subpages,
		Livecrawl: "fallback",
	}

	var env resultsEnvelope
	if err := c.post(ctx, "/contents", body, &env); err != nil {
		return nil, err
	}
	if len(env.Results) == 0 {
		return nil, fmt.Errorf("search: no content returned for %s", url)
	}
	r := env.Results[0]
	return &Page{URL: r.URL, Title: r.Title, Text: r.Text, Subpages: r.Subpages}, nil
}

// Answer asks the API for a sourced answer to query.
func (c *Client) Answer(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: empty query")
	}
	var env answerEnvelope
	if err := c.post(ctx, "/answer", answerBody{Query: query}, &env); err != nil {
		return nil, err
	}
	return &Answer{Text: env.Answer, Sources: env.Citations}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("search: encode request: %w", err)
	}
	return c.config.Retry.Do(ctx, c.keys, func(ctx context.Context, key core.Secret) error {
		headers := make(http.Header)
		headers.Set("x-api-key", key.Expose())
		resp, err := normalize.Post(ctx, c.config.HTTPClient, normalize.Request{
			Provider: serviceID,
			URL:      c.config.BaseURL + path,
			Headers:  headers,
			Body:     payload,
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(normalize.TagReads(resp.Body)).Decode(out); err != nil {
			if se := normalize.StreamError(ctx, serviceID, err); se != err {
				return se
			}
			return normalize.DecodeError(serviceID, err)
		}
		return nil
	})
}
