package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/ragsearch/credential"
	"github.com/a-h/ragsearch/prompt"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	Temperature = 0.2
	MaxTokens   = 500
)

var ErrNoChoices = errors.New("completion: response contained no choices")

// New creates a client that always uses the given model.
func New(llm llms.Model) Client {
	return Client{
		model: func(context.Context) (llms.Model, error) {
			return llm, nil
		},
	}
}

type AzureConfig struct {
	Endpoint   string
	APIVersion string
	// Model is the deployment name.
	Model string
}

// NewAzure creates a client for Azure OpenAI. The model is created for each
// call so that bearer tokens are fetched from the credential provider at the
// time of use.
func NewAzure(config AzureConfig, credentials credential.Provider, httpClient *http.Client) Client {
	return Client{
		model: func(ctx context.Context) (llms.Model, error) {
			cred, err := credentials.Credential(ctx)
			if err != nil {
				return nil, fmt.Errorf("completion: failed to get credential: %w", err)
			}
			apiType := openai.APITypeAzure
			if cred.Kind == credential.KindBearer {
				apiType = openai.APITypeAzureAD
			}
			return openai.New(
				openai.WithAPIType(apiType),
				openai.WithBaseURL(config.Endpoint),
				openai.WithAPIVersion(config.APIVersion),
				openai.WithModel(config.Model),
				openai.WithToken(cred.Secret),
				openai.WithHTTPClient(httpClient))
		},
	}
}

type Client struct {
	model func(ctx context.Context) (llms.Model, error)
}

// Complete sends the prompt as a system and a human message and returns the
// text of the first choice.
func (c Client) Complete(ctx context.Context, p prompt.Prompt) (summary string, err error) {
	llm, err := c.model(ctx)
	if err != nil {
		return "", fmt.Errorf("completion: failed to create model: %w", err)
	}
	resp, err := llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.System),
		llms.TextParts(llms.ChatMessageTypeHuman, p.User),
	}, llms.WithTemperature(Temperature), llms.WithMaxTokens(MaxTokens))
	if err != nil {
		return "", fmt.Errorf("completion: failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Content, nil
}
