package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/a-h/ragsearch/azsearch"
	"github.com/a-h/ragsearch/completion"
	"github.com/a-h/ragsearch/credential"
	"github.com/a-h/ragsearch/metrics"
	"github.com/a-h/ragsearch/models"
	"github.com/a-h/ragsearch/prompt"
	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSearcher struct {
	calls    []azsearch.Request
	snippets []models.Snippet
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, req azsearch.Request) ([]models.Snippet, error) {
	f.calls = append(f.calls, req)
	return f.snippets, f.err
}

type fakeCompleter struct {
	prompts []prompt.Prompt
	summary string
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, p prompt.Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.summary, f.err
}

func ptr(s string) *string {
	return &s
}

func TestPreflight(t *testing.T) {
	s := &fakeSearcher{}
	c := &fakeCompleter{}
	h := New(discardLogger, s, c, "default-index", nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/search", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	expected := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Max-Age":       "86400",
	}
	for k, v := range expected {
		if actual := w.Header().Get(k); actual != v {
			t.Errorf("expected %s %q, got %q", k, v, actual)
		}
	}
	if len(s.calls) != 0 || len(c.prompts) != 0 {
		t.Error("expected no upstream calls for preflight requests")
	}
}

func TestPost(t *testing.T) {
	s := &fakeSearcher{
		snippets: []models.Snippet{
			{ID: ptr("1"), Title: "T1", Snippet: "A", URL: ptr("https://example.com/1")},
			{Title: "Document 2", Snippet: "B"},
		},
	}
	c := &fakeCompleter{summary: "Here is the answer."}
	h := New(discardLogger, s, c, "default-index", metrics.New("test"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"opening hours","top":"5"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if actual := w.Header().Get("Access-Control-Allow-Origin"); actual != "*" {
		t.Errorf("expected allow origin *, got %q", actual)
	}
	if actual := w.Header().Get("Access-Control-Allow-Headers"); actual != "Content-Type" {
		t.Errorf("expected allow headers Content-Type, got %q", actual)
	}
	if diff := cmp.Diff([]azsearch.Request{{Query: "opening hours", Index: "default-index", Top: 5}}, s.calls); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]prompt.Prompt{prompt.Build("opening hours", s.snippets)}, c.prompts); diff != "" {
		t.Error(diff)
	}

	var actual models.SearchPostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	expected := models.SearchPostResponse{
		Summary: "Here is the answer.",
		Results: s.snippets,
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Error(diff)
	}
}

func TestPostWireFormat(t *testing.T) {
	s := &fakeSearcher{
		snippets: []models.Snippet{{Title: "Document 1", Snippet: ""}},
	}
	c := &fakeCompleter{summary: "S"}
	h := New(discardLogger, s, c, "default-index", nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{}`)))

	var actual map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	expected := map[string]any{
		"summary": "S",
		"results": []any{
			map[string]any{"id": nil, "title": "Document 1", "snippet": "", "url": nil},
		},
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Error(diff)
	}
}

func TestPostWithNoResultsStillCallsCompletion(t *testing.T) {
	s := &fakeSearcher{}
	c := &fakeCompleter{summary: "I could not find anything."}
	h := New(discardLogger, s, c, "default-index", nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`not json`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if diff := cmp.Diff([]azsearch.Request{{Index: "default-index", Top: 3}}, s.calls); diff != "" {
		t.Error(diff)
	}
	if len(c.prompts) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(c.prompts))
	}
	if !strings.Contains(c.prompts[0].User, "Search snippets:\n\n\n") {
		t.Errorf("expected an empty snippet listing, got %q", c.prompts[0].User)
	}
	var actual map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if diff := cmp.Diff([]any{}, actual["results"]); diff != "" {
		t.Errorf("expected an empty results array: %s", diff)
	}
}

func TestPostUpstreamErrors(t *testing.T) {
	tests := []struct {
		name                    string
		searcher                *fakeSearcher
		completer               *fakeCompleter
		expectedCompletionCalls int
	}{
		{
			name:                    "search failures skip the completion call",
			searcher:                &fakeSearcher{err: errors.New("search unavailable")},
			completer:               &fakeCompleter{summary: "unused"},
			expectedCompletionCalls: 0,
		},
		{
			name:                    "completion failures are returned",
			searcher:                &fakeSearcher{snippets: []models.Snippet{{Title: "T"}}},
			completer:               &fakeCompleter{err: errors.New("rate limited")},
			expectedCompletionCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(discardLogger, tt.searcher, tt.completer, "default-index", metrics.New("test"))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"q"}`)))
			if w.Code == http.StatusOK {
				t.Errorf("expected a non-200 status, got %d", w.Code)
			}
			if len(tt.completer.prompts) != tt.expectedCompletionCalls {
				t.Errorf("expected %d completion calls, got %d", tt.expectedCompletionCalls, len(tt.completer.prompts))
			}
		})
	}
}

type fakeModel struct {
	fail bool
}

func (f fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.fail {
		return nil, errors.New("completion service unavailable")
	}
	// Echo the user message so that each response can be traced to its request.
	user := messages[len(messages)-1].Parts[0].(llms.TextContent).Text
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: strings.SplitN(user, "\n", 2)[0]}},
	}, nil
}

func (f fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestEndToEnd(t *testing.T) {
	var searchStatus atomic.Int32
	searchStatus.Store(http.StatusOK)
	searchService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "search-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload struct {
			Search string `json:"search"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(int(searchStatus.Load()))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []any{
				map[string]any{"title": "T1", "@search.captions": []any{map[string]any{"text": payload.Search + " A"}}},
				map[string]any{"@search.captions": []any{map[string]any{"text": payload.Search + " B"}}},
			},
		})
	}))
	defer searchService.Close()

	searcher := azsearch.New(azsearch.Config{
		Endpoint:              searchService.URL,
		SemanticConfiguration: "default",
		TitleField:            "title",
	}, credential.Key("search-key"))

	post := func(h Handler, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))
		return w
	}

	t.Run("results are returned in search order with fallback titles", func(t *testing.T) {
		h := New(discardLogger, searcher, completion.New(fakeModel{}), "policies", nil)
		w := post(h, `{"query":"cider"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var actual models.SearchPostResponse
		if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		expected := models.SearchPostResponse{
			Summary: "User question: cider",
			Results: []models.Snippet{
				{Title: "T1", Snippet: "cider A"},
				{Title: "Document 2", Snippet: "cider B"},
			},
		}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("failures do not affect later requests", func(t *testing.T) {
		failing := New(discardLogger, searcher, completion.New(fakeModel{fail: true}), "policies", nil)
		if w := post(failing, `{"query":"first"}`); w.Code == http.StatusOK {
			t.Fatalf("expected completion failure, got %d", w.Code)
		}

		searchStatus.Store(http.StatusServiceUnavailable)
		h := New(discardLogger, searcher, completion.New(fakeModel{}), "policies", nil)
		if w := post(h, `{"query":"second"}`); w.Code == http.StatusOK {
			t.Fatalf("expected search failure, got %d", w.Code)
		}

		searchStatus.Store(http.StatusOK)
		w := post(h, `{"query":"third"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var actual models.SearchPostResponse
		if err := json.Unmarshal(w.Body.Bytes(), &actual); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if actual.Summary != "User question: third" {
			t.Errorf("unexpected summary %q", actual.Summary)
		}
		if len(actual.Results) != 2 || actual.Results[0].Snippet != "third A" {
			t.Errorf("unexpected results %+v", actual.Results)
		}
	})
}
