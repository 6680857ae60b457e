package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a-h/ragsearch/citation"
	"github.com/a-h/ragsearch/client"
	"github.com/a-h/ragsearch/models"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"
)

type SearchCommand struct {
	RAGSearchURL    string `help:"The URL of the search server." env:"RAG_SEARCH_URL" default:"http://localhost:9020"`
	RAGSearchAPIKey string `help:"The API key for the search server." env:"RAG_SEARCH_API_KEY" default:""`
	Query           string `arg:"" help:"The question to ask."`
	Index           string `help:"The index to search. Uses the server default if empty." default:""`
	Top             int    `help:"The number of documents to retrieve. Uses the server default if zero." default:"0"`
	Format          string `help:"The output format." enum:"json,yaml,text" default:"json"`
	Pretty          bool   `help:"Pretty print the JSON output." default:"true"`
}

func (c SearchCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.RAGSearchURL, c.RAGSearchAPIKey)
	resp, err := rsc.SearchPost(ctx, models.SearchPostRequest{
		Query: c.Query,
		Index: c.Index,
		Top:   c.Top,
	})
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}
	return c.write(os.Stdout, resp)
}

func (c SearchCommand) write(w io.Writer, resp models.SearchPostResponse) error {
	switch c.Format {
	case "yaml":
		return yaml.NewEncoder(w).Encode(resp)
	case "text":
		_, err := io.WriteString(w, formatResponse(resp, 80))
		return err
	}
	enc := json.NewEncoder(w)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// formatResponse renders the summary followed by the sources, grouped by title.
func formatResponse(resp models.SearchPostResponse, width uint) string {
	var sb strings.Builder
	sb.WriteString(wordwrap.String(resp.Summary, int(width)))
	sb.WriteString("\n")
	groups := citation.GroupByTitle(resp.Results)
	if len(groups) == 0 {
		return sb.String()
	}
	sb.WriteString("\nSources\n")
	for _, g := range groups {
		sb.WriteString("\n")
		sb.WriteString(g.Title)
		sb.WriteString("\n")
		for _, c := range g.Citations {
			sb.WriteString(wordwrap.String(fmt.Sprintf("%d. %s", c.N, c.Preview), int(width)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
