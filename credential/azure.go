package credential

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
)

const (
	SearchScope            = "https://search.azure.com/.default"
	CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

// NewAzureTokenSource adapts an Azure identity credential to an oauth2.TokenSource.
// Tokens are reused until shortly before they expire.
func NewAzureTokenSource(cred azcore.TokenCredential, scopes ...string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, azureTokenSource{
		cred:   cred,
		scopes: scopes,
	})
}

type azureTokenSource struct {
	cred   azcore.TokenCredential
	scopes []string
}

func (s azureTokenSource) Token() (*oauth2.Token, error) {
	at, err := s.cred.GetToken(context.Background(), policy.TokenRequestOptions{
		Scopes: s.scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("credential: azure token request failed: %w", err)
	}
	return &oauth2.Token{
		AccessToken: at.Token,
		TokenType:   "Bearer",
		Expiry:      at.ExpiresOn,
	}, nil
}
