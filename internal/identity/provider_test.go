package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, providers []string) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	return NewProvider(srv.URL, testJWTConfig(), providers, time.Second, srv.Client(), &logger)
}

func validToken(t *testing.T) string {
	t.Helper()

	token, err := GenerateToken(testJWTConfig(), 42, "alice", false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestResolveNoTokenIsNone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected without a token")
	}, nil)

	id := p.Resolve(context.Background(), "", false)
	if id.Kind != KindNone {
		t.Fatalf("expected None, got %s", id.Kind)
	}
}

func TestResolveNoTokenWithOIDCProviders(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no network call expected without a token")
	}, []string{"keycloak", "github"})

	id := p.Resolve(context.Background(), "", true)
	if id.Kind != KindOIDCPending {
		t.Fatalf("expected OidcPending, got %s", id.Kind)
	}
	if len(id.Providers) != 2 {
		t.Fatalf("expected provider list, got %+v", id.Providers)
	}
	if id.Authenticated() {
		t.Fatalf("OidcPending must not count as authenticated")
	}
}

func TestResolveExchangesCredentials(t *testing.T) {
	token := validToken(t)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+token {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jid":"alice@chat.example.org","password":"xmpp-pass","nickname":"Alice"}`))
	}, nil)

	id := p.Resolve(context.Background(), token, false)
	if id.Kind != KindHost {
		t.Fatalf("expected HostAuthenticated, got %s", id.Kind)
	}
	if id.JID != "alice@chat.example.org" || id.Password != "xmpp-pass" || id.Nickname != "Alice" {
		t.Fatalf("unexpected credentials: %+v", id)
	}
}

func TestResolveInvalidTokenDegradesToNone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("forged token must not reach the auth endpoint")
	}, nil)

	if id := p.Resolve(context.Background(), "not-a-jwt", false); id.Kind != KindNone {
		t.Fatalf("expected None, got %s", id.Kind)
	}
}

func TestResolveExpiredTokenDegradesToNone(t *testing.T) {
	expired, err := GenerateToken(testJWTConfig(), 42, "alice", false, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("expired token must not reach the auth endpoint")
	}, nil)

	if id := p.Resolve(context.Background(), expired, false); id.Kind != KindNone {
		t.Fatalf("expected None, got %s", id.Kind)
	}
}

func TestResolveEndpointFailuresDegradeToNone(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>nope</html>"))
		},
		"missing fields": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"jid":"alice@chat.example.org"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(t, handler, nil)
			if id := p.Resolve(context.Background(), validToken(t), false); id.Kind != KindNone {
				t.Fatalf("expected None, got %s", id.Kind)
			}
		})
	}
}

func TestResolveCancelledContextDegradesToNone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jid":"a@b","password":"c"}`))
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if id := p.Resolve(ctx, validToken(t), false); id.Kind != KindNone {
		t.Fatalf("expected None after cancellation, got %s", id.Kind)
	}
}

func TestValidateTokenChecksIssuerAndAudience(t *testing.T) {
	other := &JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "elsewhere", Audience: "test"}
	token, err := GenerateToken(other, 1, "bob", true, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := ValidateToken(testJWTConfig(), token); err == nil {
		t.Fatalf("expected issuer mismatch to fail validation")
	}
}
