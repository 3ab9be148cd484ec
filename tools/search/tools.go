package search

import (
	"context"
	"encoding/json"

	"github.com/petal-labs/conduit/core"
	"github.com/petal-labs/conduit/tools"
)

// Tool names.
const (
	WebSearch    = "web_search"
	NewsSearch   = "news_search"
	CodeSearch   = "code_search"
	PeopleSearch = "people_search"
	CrawlWebsite = "crawl_website"
	FetchURL     = "fetch_url"
	AnswerTool   = "answer"
)

const maxSubpages = 10

var (
	queryParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "What to search for"},
    "num_results": {"type": "integer", "description": "Number of results (optional)"},
    "domains": {"type": "array", "items": {"type": "string"}, "description": "Only return results from these domains (optional)"}
  },
  "required": ["query"]
}`)
	urlParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute URL of the page"}
  },
  "required": ["url"]
}`)
	crawlParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute URL to start from"},
    "max_subpages": {"type": "integer", "description": "Linked pages to include, at most 10 (optional)"}
  },
  "required": ["url"]
}`)
	answerParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "question": {"type": "string", "description": "The question to answer"}
  },
  "required": ["question"]
}`)
)

type queryArgs struct {
	Query      string   `json:"query"`
	NumResults int      `json:"num_results"`
	Domains    []string `json:"domains"`
}

type urlArgs struct {
	URL         string `json:"url"`
	MaxSubpages *int   `json:"max_subpages"`
}

type answerArgs struct {
	Question string `json:"question"`
}

// Tools returns every search tool bound to c.
func Tools(c *Client) []tools.Tool {
	return []tools.Tool{
		c.searchTool(WebSearch, "Search the web for current information. Returns titles, URLs and excerpts.", CategoryNone),
		c.searchTool(NewsSearch, "Search recent news articles.", CategoryNews),
		c.searchTool(CodeSearch, "Search code repositories and technical documentation.", CategoryGitHub),
		c.searchTool(PeopleSearch, "Search public professional profiles of people.", CategoryPeople),
		tools.Func(CrawlWebsite, "Read a website starting at a URL, including some of its linked pages.", crawlParams, c.crawl),
		tools.Func(FetchURL, "Fetch the readable text of a single web page.", urlParams, c.fetch),
		tools.Func(AnswerTool, "Get a short sourced answer to a factual question.", answerParams, c.answer),
	}
}

// Register adds every search tool to r, each wrapped in mws.
func Register(r *tools.Registry, c *Client, mws ...tools.Middleware) error {
	for _, t := range Tools(c) {
		if err := r.RegisterWithMiddleware(t, mws...); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) searchTool(name, description string, category Category) tools.Tool {
	return tools.Func(name, description, queryParams, func(ctx context.Context, raw json.RawMessage) (any, error) {
		args, err := tools.ParseArgs[queryArgs](raw)
		if err != nil {
			return nil, err
		}
		return c.Search(ctx, Request{
			Query:      args.Query,
			NumResults: args.NumResults,
			Category:   category,
			Mode:       core.SearchModeFrom(ctx),
			Domains:    args.Domains,
		})
	})
}

func (c *Client) crawl(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := tools.ParseArgs[urlArgs](raw)
	if err != nil {
		return nil, err
	}
	n := 5
	if args.MaxSubpages != nil {
		n = max(0, min(*args.MaxSubpages, maxSubpages))
	}
	return c.Contents(ctx, args.URL, n)
}

func (c *Client) fetch(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := tools.ParseArgs[urlArgs](raw)
	if err != nil {
		return nil, err
	}
	return c.Contents(ctx, args.URL, 0)
}

func (c *Client) answer(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := tools.ParseArgs[answerArgs](raw)
	if err != nil {
		return nil, err
	}
	return c.Answer(ctx, args.Question)
}
