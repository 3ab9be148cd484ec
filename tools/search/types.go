package search

import (
	"fmt"
	"strings"

	"github.com/petal-labs/conduit/core"
)

// Category narrows a search to one kind of source.
type Category string

const (
	CategoryNone    Category = ""
	CategoryNews    Category = "news"
	CategoryGitHub  Category = "github"
	CategoryPeople  Category = "linkedin profile"
	CategoryCompany Category = "company"
)

// Request is one search query.
type Request struct {
	Query      string
	NumResults int
	Category   Category
	Mode       core.SearchMode
	Domains    []string
}

// Result is one hit returned by the search API.
type Result struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// snippet prefers the summary, then highlights, then page text.
func (r Result) snippet() string {
	switch {
	case r.Summary != "":
		return r.Summary
	case len(r.Highlights) > 0:
		return strings.Join(r.Highlights, " … ")
	default:
		return r.Text
	}
}

// Results is a list of hits. It is handed to the model as citations.
type Results struct {
	Query string
	Items []Result
}

// Citations implements core.Citable.
func (r *Results) Citations() []core.Citation {
	out := make([]core.Citation, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, core.Citation{
			Title:     it.Title,
			URL:       it.URL,
			Snippet:   it.snippet(),
			Published: it.PublishedDate,
			Author:    it.Author,
		})
	}
	return out
}

// Page is the extracted content of one URL.
type Page struct {
	URL      string
	Title    string
	Text     string
	Subpages []Result
}

// String renders the page for the model.
func (p *Page) String() string {
	var b strings.Builder
	if p.Title != "" {
		fmt.Fprintf(&b, "# %s\n", p.Title)
	}
	fmt.Fprintf(&b, "Source: %s\n\n%s", p.URL, p.Text)
	for _, sp := range p.Subpages {
		fmt.Fprintf(&b, "\n\n## %s\nSource: %s\n\n%s", sp.Title, sp.URL, sp.Text)
	}
	return b.String()
}

// Answer is a generated answer with its sources.
type Answer struct {
	Text    string
	Sources []Result
}

// String renders the answer followed by its numbered sources.
func (a *Answer) String() string {
	var b strings.Builder
	b.WriteString(a.Text)
	if len(a.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for i, s := range a.Sources {
			fmt.Fprintf(&b, "\n[%d] %s (%s)", i+1, s.Title, s.URL)
		}
	}
	return b.String()
}

// wire shapes

type searchBody struct {
	Query          string        `json:"query"`
	Type           string        `json:"type"`
	NumResults     int           `json:"numResults"`
	Category       Category      `json:"category,omitempty"`
	IncludeDomains []string      `json:"includeDomains,omitempty"`
	Contents       *contentsSpec `json:"contents,omitempty"`
}

type contentsSpec struct {
	Text       *textSpec `json:"text,omitempty"`
	Highlights bool      `json:"highlights,omitempty"`
	Summary    bool      `json:"summary,omitempty"`
}

type textSpec struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

type contentsBody struct {
	URLs      []string  `json:"urls"`
	Text      *textSpec `json:"text,omitempty"`
	Subpages  int       `json:"subpages,omitempty"`
	Livecrawl string    `json:"livecrawl,omitempty"`
}

type answerBody struct {
	Query string `json:"query"`
	Text  bool   `json:"text"`
}

type resultsEnvelope struct {
	RequestID string `json:"requestId"`
	Results   []struct {
		Result
		Subpages []Result `json:"subpages,omitempty"`
	} `json:"results"`
}

type answerEnvelope struct {
	Answer    string   `json:"answer"`
	Citations []Result `json:"citations"`
}
