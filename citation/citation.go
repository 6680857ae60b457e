// Package citation formats search results for display.
package citation

import (
	"regexp"
	"strings"

	"github.com/a-h/ragsearch/models"
)

var (
	whitespace    = regexp.MustCompile(`\s+`)
	markdownLinks = regexp.MustCompile(`\[.*?\]\(.*?\)`)
	paths         = regexp.MustCompile(`/[A-Za-z0-9_\-./]+(\.pdf|\.docx|\.txt)?`)
	pageNumbers   = regexp.MustCompile(`(?i)(?:Page \d+ of \d+|Page \d+)`)
	rules         = regexp.MustCompile(`-{2,}|_{2,}`)
	capitalised   = regexp.MustCompile(`^[A-Z]`)
)

// Clean removes links, file paths, page numbers and rules from extracted
// text, then drops sentences that don't start with a capital letter.
func Clean(text string) string {
	text = whitespace.ReplaceAllString(text, " ")
	text = markdownLinks.ReplaceAllString(text, "")
	text = paths.ReplaceAllString(text, "")
	text = pageNumbers.ReplaceAllString(text, "")
	text = rules.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	var kept []string
	for _, sentence := range strings.Split(text, ". ") {
		if capitalised.MatchString(strings.TrimSpace(sentence)) {
			kept = append(kept, sentence)
		}
	}
	return strings.Join(kept, ". ")
}

// Preview returns the first two sentences of the cleaned text.
func Preview(text string) string {
	full := Clean(text)
	var sentences []string
	for _, s := range strings.Split(full, ". ") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= 2 {
		return full
	}
	return strings.Join(sentences[:2], ". ") + "..."
}

type Citation struct {
	// N is the 1-based position of the result in the search response.
	N       int
	Preview string
}

type Group struct {
	Title     string
	Citations []Citation
}

// GroupByTitle groups results that share a title, in order of first appearance.
func GroupByTitle(results []models.Snippet) (groups []Group) {
	index := make(map[string]int)
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled Source"
		}
		gi, ok := index[title]
		if !ok {
			gi = len(groups)
			index[title] = gi
			groups = append(groups, Group{Title: title})
		}
		groups[gi].Citations = append(groups[gi].Citations, Citation{
			N:       i + 1,
			Preview: Preview(r.Snippet),
		})
	}
	return groups
}
