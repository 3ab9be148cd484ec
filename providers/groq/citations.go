package groq

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/conduit/core"
)

// sources is the ordered, de-duplicated list of pages a compound answer
// drew on. It implements core.Citable.
type sources []core.Citation

func (s sources) Citations() []core.Citation { return s }

func (s *sources) add(c core.Citation) {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		return
	}
	for _, have := range *s {
		if have.URL == c.URL {
			return
		}
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = c.URL
	}
	*s = append(*s, c)
}

var (
	titleLine = regexp.MustCompile(`(?m)^\s*Title:\s*(.+?)\s*$`)
	urlLine   = regexp.MustCompile(`(?m)^\s*URL:\s*(\S+)\s*$`)
)

// extractSources reads result pages from one executed tool. Structured
// search_results win; otherwise Title:/URL: line pairs in the free-text
// output are used.
func extractSources(tool gjson.Result) sources {
	var out sources
	tool.Get("search_results.results").ForEach(func(_, r gjson.Result) bool {
		out.add(core.Citation{
			Title:     r.Get("title").String(),
			URL:       r.Get("url").String(),
			Snippet:   r.Get("content").String(),
			Published: r.Get("published_date").String(),
		})
		return true
	})
	if len(out) > 0 {
		return out
	}
	return parseOutput(tool.Get("output").String())
}

// parseOutput pairs each URL: line with the nearest Title: line above it.
func parseOutput(text string) sources {
	var out sources
	titles := titleLine.FindAllStringSubmatchIndex(text, -1)
	for _, m := range urlLine.FindAllStringSubmatchIndex(text, -1) {
		url := text[m[2]:m[3]]
		title := ""
		for _, t := range titles {
			if t[0] > m[0] {
				break
			}
			title = text[t[2]:t[3]]
		}
		out.add(core.Citation{Title: title, URL: url})
	}
	return out
}

var (
	// 【Title†https://example.com】
	inlineSource = regexp.MustCompile(`【([^†】]+)†([^】\s]+)】`)
	// 【3】
	fullwidthRef = regexp.MustCompile(`【(\d+)】`)
	// [3], unless it already starts a markdown link
	bracketRef = regexp.MustCompile(`\[(\d+)\](\()?`)
)

// rewriteCitations turns the backend's bracket citations into markdown
// links. Numeric references resolve against srcs, one-based; references
// outside srcs are left as they are.
func rewriteCitations(text string, srcs sources) string {
	text = inlineSource.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineSource.FindStringSubmatch(m)
		return link(strings.TrimSpace(sub[1]), sub[2])
	})
	text = fullwidthRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := fullwidthRef.FindStringSubmatch(m)
		if c, ok := nth(srcs, sub[1]); ok {
			return link(c.Title, c.URL)
		}
		return m
	})
	return bracketRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := bracketRef.FindStringSubmatch(m)
		if sub[2] != "" {
			return m
		}
		if c, ok := nth(srcs, sub[1]); ok {
			return link(c.Title, c.URL)
		}
		return m
	})
}

func nth(srcs sources, ref string) (core.Citation, bool) {
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(srcs) {
		return core.Citation{}, false
	}
	return srcs[n-1], true
}

func link(title, url string) string {
	title = strings.NewReplacer("[", "(", "]", ")").Replace(title)
	return "[" + title + "](" + url + ")"
}
