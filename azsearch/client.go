package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/jsonapi"
	"github.com/a-h/ragsearch/credential"
	"github.com/a-h/ragsearch/models"
)

const APIVersion = "2021-04-30-Preview"

const DefaultTop = 3

type Config struct {
	// Endpoint of the search service, e.g. https://example.search.windows.net
	Endpoint              string
	SemanticConfiguration string
	TitleField            string
	SourceField           string
	IDField               string
}

func New(config Config, credentials credential.Provider) Client {
	return Client{
		config:      config,
		credentials: credentials,
	}
}

type Client struct {
	config      Config
	credentials credential.Provider
}

type Request struct {
	Query string
	Index string
	Top   int
}

type payload struct {
	Search                string `json:"search"`
	Top                   int    `json:"top"`
	QueryType             string `json:"queryType"`
	SemanticConfiguration string `json:"semanticConfiguration"`
	Captions              string `json:"captions"`
}

func (c Client) URL(index string) (string, error) {
	return jsonapi.URL(strings.TrimSuffix(c.config.Endpoint, "/")).
		Path("indexes", index, "docs", "search").
		Query(map[string]string{"api-version": APIVersion}).
		String()
}

// Search runs a semantic query and returns one snippet per document, in the
// order the service ranked them.
func (c Client) Search(ctx context.Context, req Request) (snippets []models.Snippet, err error) {
	if req.Top < 1 {
		req.Top = DefaultTop
	}
	url, err := c.URL(req.Index)
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to create URL: %w", err)
	}
	cred, err := c.credentials.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to get credential: %w", err)
	}
	buf, err := json.Marshal(payload{
		Search:                req.Query,
		Top:                   req.Top,
		QueryType:             "semantic",
		SemanticConfiguration: c.config.SemanticConfiguration,
		Captions:              "extractive",
	})
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader(cred.Header()))
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("azsearch: failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	docs, err := parseDocuments(body)
	if err != nil {
		return nil, err
	}
	snippets = make([]models.Snippet, len(docs))
	for i, doc := range docs {
		snippets[i] = c.snippet(i, doc)
	}
	return snippets, nil
}

func (c Client) snippet(idx int, doc Document) models.Snippet {
	title, ok := doc.String(c.config.TitleField)
	if !ok || title == "" {
		title = fmt.Sprintf("Document %d", idx+1)
	}
	return models.Snippet{
		ID:      doc.StringPtr(c.config.IDField),
		Title:   title,
		Snippet: doc.Caption(),
		URL:     doc.StringPtr(c.config.SourceField),
	}
}
