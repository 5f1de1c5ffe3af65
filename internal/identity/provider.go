package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Kind discriminates the identity variants.
type Kind string

const (
	// KindNone means the visitor has no usable host credentials.
	KindNone Kind = "none"
	// KindHost means the host application vouched for the visitor and
	// exchanged its credentials for chat credentials.
	KindHost Kind = "host"
	// KindOIDCPending means the visitor is anonymous but external sign-in
	// providers are available to offer.
	KindOIDCPending Kind = "oidc_pending"
)

// Identity is the result of one identity resolution. It is created fresh per
// connection attempt and never mutated afterward.
type Identity struct {
	Kind              Kind
	JID               string
	Password          string
	Nickname          string
	IsExternalAccount bool
	Providers         []string
}

// None returns the anonymous identity.
func None() Identity {
	return Identity{Kind: KindNone}
}

// Authenticated reports whether the identity carries chat credentials.
func (id Identity) Authenticated() bool {
	return id.Kind == KindHost
}

// credentialsResponse is the body the host auth endpoint must return.
type credentialsResponse struct {
	JID      string `json:"jid"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

// Provider exchanges host credentials for chat credentials. Every failure on
// this path degrades to the anonymous identity: "visitor is anonymous" is a
// legitimate state, not an error.
type Provider struct {
	authURL   string
	jwtConfig *JWTConfig
	providers []string
	client    *http.Client
	log       *zerolog.Logger
}

// NewProvider builds a provider. client may be nil, in which case a client
// with the given timeout is used.
func NewProvider(authURL string, jwtConfig *JWTConfig, oidcProviders []string, timeout time.Duration, client *http.Client, logger *zerolog.Logger) *Provider {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Provider{
		authURL:   authURL,
		jwtConfig: jwtConfig,
		providers: oidcProviders,
		client:    client,
		log:       logger,
	}
}

// Resolve produces the identity for one connection attempt. An empty token
// means no stored host credentials; with tryOIDC set and providers
// configured, that resolves to OidcPending instead of None so the caller can
// offer sign-in buttons without blocking the connection. One network attempt,
// no retries.
func (p *Provider) Resolve(ctx context.Context, token string, tryOIDC bool) Identity {
	if token == "" {
		return p.anonymous(tryOIDC)
	}

	// Reject expired or forged tokens before spending a network round-trip.
	claims, err := ValidateToken(p.jwtConfig, token)
	if err != nil {
		p.log.Debug().Err(err).Msg("host token rejected, resolving as anonymous")
		return p.anonymous(tryOIDC)
	}

	creds, err := p.exchange(ctx, token)
	if err != nil {
		p.log.Debug().Err(err).Str("username", claims.Username).Msg("credential exchange failed, resolving as anonymous")
		return p.anonymous(tryOIDC)
	}

	return Identity{
		Kind:              KindHost,
		JID:               creds.JID,
		Password:          creds.Password,
		Nickname:          creds.Nickname,
		IsExternalAccount: claims.IsExternal,
	}
}

func (p *Provider) anonymous(tryOIDC bool) Identity {
	if tryOIDC && len(p.providers) > 0 {
		return Identity{Kind: KindOIDCPending, Providers: p.providers}
	}
	return None()
}

func (p *Provider) exchange(ctx context.Context, token string) (*credentialsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.authURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}

	var creds credentialsResponse
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if creds.JID == "" || creds.Password == "" {
		return nil, fmt.Errorf("auth response missing jid or password")
	}

	return &creds, nil
}
