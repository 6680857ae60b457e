package search

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/ragsearch/auth"
	"github.com/a-h/ragsearch/azsearch"
	"github.com/a-h/ragsearch/metrics"
	"github.com/a-h/ragsearch/models"
	"github.com/a-h/ragsearch/prompt"
	"github.com/a-h/respond"
)

type Searcher interface {
	Search(ctx context.Context, req azsearch.Request) ([]models.Snippet, error)
}

type Completer interface {
	Complete(ctx context.Context, p prompt.Prompt) (string, error)
}

func New(log *slog.Logger, searcher Searcher, completer Completer, defaultIndex string, m *metrics.Metrics) Handler {
	return Handler{
		log:          log,
		searcher:     searcher,
		completer:    completer,
		defaultIndex: defaultIndex,
		metrics:      m,
	}
}

type Handler struct {
	log          *slog.Logger
	searcher     Searcher
	completer    Completer
	defaultIndex string
	metrics      *metrics.Metrics
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}
	h.metrics.IncrementHTTPRequests()

	// A body that can't be read is handled the same way as malformed JSON.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("failed to read body", slog.Any("error", err))
	}
	req := parseRequest(body, h.defaultIndex)

	log := h.log.With(slog.String("index", req.Index), slog.Int("top", req.Top))
	if user, ok := auth.GetUser(r); ok {
		log = log.With(slog.String("user", user))
	}
	log.Info("processing search request")

	start := time.Now()
	snippets, err := h.searcher.Search(r.Context(), req)
	h.metrics.ObserveUpstream(metrics.UpstreamSearch, err, time.Since(start))
	if err != nil {
		log.Error("search failed", slog.Any("error", err))
		h.metrics.IncrementHTTPErrors()
		respond.WithError(w, "search failed", http.StatusInternalServerError)
		return
	}
	if snippets == nil {
		snippets = []models.Snippet{}
	}

	p := prompt.Build(req.Query, snippets)

	start = time.Now()
	summary, err := h.completer.Complete(r.Context(), p)
	h.metrics.ObserveUpstream(metrics.UpstreamCompletion, err, time.Since(start))
	if err != nil {
		log.Error("completion failed", slog.Any("error", err))
		h.metrics.IncrementHTTPErrors()
		respond.WithError(w, "completion failed", http.StatusInternalServerError)
		return
	}
	log.Info("search request complete", slog.Int("results", len(snippets)))

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	respond.WithJSON(w, models.SearchPostResponse{
		Summary: summary,
		Results: snippets,
	}, http.StatusOK)
}
