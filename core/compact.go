package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CompactPolicy bounds how much of a tool result is fed back to a model.
type CompactPolicy struct {
	MaxResults      int  // citations kept from a result list (0 = unlimited)
	MaxChars        int  // characters kept overall (0 = unlimited)
	IncludeMetadata bool // published date and author lines per citation
}

// Citation is one sourced item in a tool result.
type Citation struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet,omitempty"`
	Published string `json:"published,omitempty"`
	Author    string `json:"author,omitempty"`
}

// Citable is implemented by tool results that carry a list of sources.
type Citable interface {
	Citations() []Citation
}

const truncationMarker = "\n[truncated]"

// Compact renders result as model-facing text under policy.
func Compact(result any, policy CompactPolicy) string {
	var out string
	switch v := result.(type) {
	case nil:
		out = "(no result)"
	case string:
		out = v
	case []Citation:
		out = formatCitations(v, policy)
	case Citable:
		out = formatCitations(v.Citations(), policy)
	case fmt.Stringer:
		out = v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			out = fmt.Sprintf("%v", v)
		} else {
			out = string(b)
		}
	}
	return truncate(out, policy.MaxChars)
}

func formatCitations(cs []Citation, policy CompactPolicy) string {
	if len(cs) == 0 {
		return "No results."
	}
	if policy.MaxResults > 0 && len(cs) > policy.MaxResults {
		cs = cs[:policy.MaxResults]
	}
	var b strings.Builder
	for i, c := range cs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, c.Title, c.URL)
		if policy.IncludeMetadata {
			if c.Published != "" {
				fmt.Fprintf(&b, "Published: %s\n", c.Published)
			}
			if c.Author != "" {
				fmt.Fprintf(&b, "Author: %s\n", c.Author)
			}
		}
		if s := strings.TrimSpace(c.Snippet); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// truncate cuts s to at most max runes, marking the cut.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	n := 0
	for i := range s {
		if n == keep {
			return s[:i] + truncationMarker
		}
		n++
	}
	return s
}
