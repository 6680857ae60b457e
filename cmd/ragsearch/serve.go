package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/a-h/ragsearch"
	"github.com/a-h/ragsearch/auth"
	"github.com/a-h/ragsearch/azsearch"
	"github.com/a-h/ragsearch/completion"
	"github.com/a-h/ragsearch/credential"
	searchpost "github.com/a-h/ragsearch/handlers/search"
	"github.com/a-h/ragsearch/metrics"
	"github.com/a-h/respond"
	"github.com/rs/cors"
)

type ServeCommand struct {
	AuthType              string `help:"How to authenticate to Azure services, keys or rbac." env:"AZURE_AUTH_TYPE" enum:"keys,rbac" default:"keys"`
	SearchService         string `help:"The URL of the Azure AI Search service." env:"AZURE_SEARCH_SERVICE" default:""`
	SearchIndex           string `help:"The index to search when the request doesn't name one." env:"AZURE_SEARCH_INDEX" default:""`
	SearchKey             string `help:"The Azure AI Search API key, used when auth type is keys." env:"AZURE_SEARCH_KEY" default:""`
	SemanticConfiguration string `help:"The semantic configuration of the index." env:"AZURE_SEARCH_SEMANTIC_SEARCH_CONFIG" default:"default"`
	TitleColumn           string `help:"The index field that holds the document title." env:"AZURE_SEARCH_TITLE_COLUMN" default:"title"`
	SourceColumn          string `help:"The index field that holds the document URL." env:"AZURE_SEARCH_SOURCE_COLUMN" default:"source"`
	IDColumn              string `help:"The index field that holds the document ID." env:"AZURE_SEARCH_FIELDS_ID" default:"id"`
	OpenAIEndpoint        string `help:"The Azure OpenAI endpoint." env:"AZURE_OPENAI_ENDPOINT" default:""`
	OpenAIAPIVersion      string `help:"The Azure OpenAI API version." env:"AZURE_OPENAI_API_VERSION" default:"2024-02-01"`
	OpenAIKey             string `help:"The Azure OpenAI API key, used when auth type is keys." env:"AZURE_OPENAI_API_KEY" default:""`
	OpenAIModel           string `help:"The Azure OpenAI model deployment to use." env:"AZURE_OPENAI_MODEL" default:"gpt-4o"`
	ListenAddr            string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile           string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile            string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile           string `help:"A JSON map of API keys to usernames. If empty, the search endpoint is anonymous." env:"API_KEYS_FILE" default:""`
	LogLevel              string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

// credentials returns the credential providers for the search and completion
// services. Missing keys are reported when the services are called.
func (c ServeCommand) credentials() (search, openai credential.Provider, err error) {
	if c.AuthType != "rbac" {
		return credential.Key(c.SearchKey), credential.Key(c.OpenAIKey), nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	search = credential.Bearer(credential.NewAzureTokenSource(cred, credential.SearchScope))
	openai = credential.Bearer(credential.NewAzureTokenSource(cred, credential.CognitiveServicesScope))
	return search, openai, nil
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	log.Info("creating credential providers", slog.String("authType", c.AuthType))
	searchCredentials, openaiCredentials, err := c.credentials()
	if err != nil {
		return err
	}

	httpClient := &http.Client{}
	searcher := azsearch.New(azsearch.Config{
		Endpoint:              c.SearchService,
		SemanticConfiguration: c.SemanticConfiguration,
		TitleField:            c.TitleColumn,
		SourceField:           c.SourceColumn,
		IDField:               c.IDColumn,
	}, searchCredentials)
	completer := completion.NewAzure(completion.AzureConfig{
		Endpoint:   c.OpenAIEndpoint,
		APIVersion: c.OpenAIAPIVersion,
		Model:      c.OpenAIModel,
	}, openaiCredentials, httpClient)

	m := metrics.New(ragsearch.Version)
	sh := searchpost.New(log, searcher, completer, c.SearchIndex, m)

	var apiKeyToUserName map[string]string
	if c.APIKeysFile != "" {
		apiKeyToUserName, err = auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
	} else {
		log.Warn("API_KEYS_FILE not set, the search endpoint accepts anonymous requests")
	}

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: newServerHandler(sh, m, apiKeyToUserName),
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}

// newServerHandler routes requests to the search handler. When apiKeyToUserName
// is nil, the search endpoint is anonymous.
func newServerHandler(search http.Handler, m *metrics.Metrics, apiKeyToUserName map[string]string) http.Handler {
	if apiKeyToUserName != nil {
		search = auth.New(apiKeyToUserName, search)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /search", search)
	mux.Handle("OPTIONS /search", search)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.WithJSON(w, map[string]string{"version": ragsearch.Version}, http.StatusOK)
	})

	// The search handler writes its own preflight response, so preflight
	// requests are passed through.
	return cors.New(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:             86400,
		OptionsPassthrough: true,
	}).Handler(mux)
}
