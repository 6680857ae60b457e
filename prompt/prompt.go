package prompt

import (
	"fmt"
	"strings"

	"github.com/a-h/ragsearch/models"
)

const System = `You are an assistant for the BC Liquor and Cannabis Regulation Branch. Provide accurate, clear answers using the documents below.`

const user = `User question: %s

Search snippets:
%s

Summarize the answer in 3-4 sentences.`

type Prompt struct {
	System string
	User   string
}

// Build lists every snippet, numbered from 1, beneath the question. Nothing is truncated.
func Build(query string, snippets []models.Snippet) Prompt {
	lines := make([]string, len(snippets))
	for i, s := range snippets {
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, s.Title, s.Snippet)
	}
	return Prompt{
		System: System,
		User:   fmt.Sprintf(user, query, strings.Join(lines, "\n")),
	}
}
