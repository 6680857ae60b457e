package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

type Kind int

const (
	// KindKey is a static API key sent in the api-key header.
	KindKey Kind = iota
	// KindBearer is a token sent in the Authorization header.
	KindBearer
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindBearer:
		return "bearer"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Credential struct {
	Kind   Kind
	Secret string
}

// Header returns the header name and value used to present the credential.
func (c Credential) Header() (name, value string) {
	if c.Kind == KindBearer {
		return "Authorization", "Bearer " + c.Secret
	}
	return "api-key", c.Secret
}

func (c Credential) Apply(h http.Header) {
	h.Set(c.Header())
}

// Provider supplies the credential for a single upstream call.
type Provider interface {
	Credential(ctx context.Context) (Credential, error)
}

var ErrMissingKey = errors.New("credential: API key not configured")
var ErrMissingTokenSource = errors.New("credential: token source not configured")

// Key is a static API key.
type Key string

func (k Key) Credential(ctx context.Context) (Credential, error) {
	if k == "" {
		return Credential{}, ErrMissingKey
	}
	return Credential{Kind: KindKey, Secret: string(k)}, nil
}

func Bearer(ts oauth2.TokenSource) TokenSource {
	return TokenSource{ts: ts}
}

// TokenSource issues bearer credentials from an oauth2.TokenSource. Caching and
// refresh are the token source's concern.
type TokenSource struct {
	ts oauth2.TokenSource
}

func (t TokenSource) Credential(ctx context.Context) (Credential, error) {
	if t.ts == nil {
		return Credential{}, ErrMissingTokenSource
	}
	tok, err := t.ts.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("credential: failed to get token: %w", err)
	}
	return Credential{Kind: KindBearer, Secret: tok.AccessToken}, nil
}
