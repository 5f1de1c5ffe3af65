package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
	"github.com/fedichat/livechat-connector/internal/config"
	"github.com/fedichat/livechat-connector/internal/diag"
	"github.com/fedichat/livechat-connector/internal/identity"
	"github.com/fedichat/livechat-connector/internal/resolve"
	"github.com/fedichat/livechat-connector/internal/store/sqlite"
	"github.com/fedichat/livechat-connector/internal/widget"
)

func testJWTConfig() *identity.JWTConfig {
	return &identity.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
	}
}

// newTestServer wires the whole pipeline against an in-memory metadata cache
// and a stubbed host auth endpoint.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jid":"alice@video.example.org","password":"xmpp-pass","nickname":"Alice"}`))
	}))
	t.Cleanup(authSrv.Close)

	provider := identity.NewProvider(authSrv.URL, testJWTConfig(), []string{"keycloak"}, time.Second, authSrv.Client(), &logger)

	resolver := resolve.New(resolve.LocalServer{
		Domain:        "video.example.org",
		MUCDomain:     "room.video.example.org",
		AnonymousHost: "anon.video.example.org",
		Endpoints: resolve.TransportEndpoints{
			BOSH:      "https://video.example.org/http-bind",
			Websocket: "wss://video.example.org/xmpp-websocket",
		},
		Caps: caps.ServerCaps{WebsocketS2S: true},
	}, &logger)

	handlers := NewHandlers(
		provider,
		resolver,
		widget.NewAdapter(nil, &logger),
		diag.NewChecker(time.Second, nil, &logger),
		st,
		time.Hour,
		resolve.UserPrefs{},
		&logger,
	)

	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	cfg := config.Default()
	return NewServer(handlers, cfg, &logger, stop).Handler
}

func doRequest(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeConnection(t *testing.T, rec *httptest.ResponseRecorder) ConnectionResponse {
	t.Helper()

	var resp ConnectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", rec.Code)
	}
}

func TestConnectionLocalAnonymous(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rooms/watch-party/connection?mode=chat-only", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeConnection(t, rec)
	if resp.Branch != string(resolve.BranchLocalAnon) {
		t.Fatalf("expected local anon branch, got %s", resp.Branch)
	}
	if resp.Params.JID != "anon.video.example.org" {
		t.Fatalf("unexpected jid %q", resp.Params.JID)
	}
	if resp.Params.AuthenticationMode != string(resolve.AuthAnonymous) {
		t.Fatalf("expected anonymous mode, got %s", resp.Params.AuthenticationMode)
	}
}

func TestConnectionAuthenticatedLocal(t *testing.T) {
	h := newTestServer(t)

	token, err := identity.GenerateToken(testJWTConfig(), 42, "alice", false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rooms/watch-party/connection?mode=peertube-video", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeConnection(t, rec)
	if resp.Branch != string(resolve.BranchLocalAuth) {
		t.Fatalf("expected local auth branch, got %s", resp.Branch)
	}
	if resp.Params.JID != "alice@video.example.org" || resp.Params.Password != "xmpp-pass" {
		t.Fatalf("expected exchanged credentials, got %+v", resp.Params)
	}
	if !resp.Params.MiniHeader {
		t.Fatalf("peertube-video embedding must use the mini header")
	}
}

func TestConnectionInvalidAuthFallsBackToAnonymous(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rooms/watch-party/connection?mode=chat-only", "",
		map[string]string{"Authorization": "Bearer garbage"})
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid token must not fail the request, got %d", rec.Code)
	}

	resp := decodeConnection(t, rec)
	if resp.Branch != string(resolve.BranchLocalAnon) {
		t.Fatalf("expected anonymous fallback, got %s", resp.Branch)
	}
}

func TestConnectionBadMode(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rooms/watch-party/connection?mode=popup", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetadataPushThenRemoteResolution(t *testing.T) {
	h := newTestServer(t)

	meta := `{
		"type": "xmpp",
		"jid": "room@conf.example.org",
		"xmppserver": {
			"anonymous": {"virtualhost": "conf.example.org", "bosh": "https://x/bosh"}
		}
	}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/rooms/room@conf.example.org/metadata", meta, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/api/v1/rooms/room@conf.example.org/connection?mode=chat-only", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeConnection(t, rec)
	if resp.Branch != string(resolve.BranchRemoteAnonFallback) {
		t.Fatalf("expected remote anon branch, got %s", resp.Branch)
	}
	if resp.Params.JID != "conf.example.org" {
		t.Fatalf("expected virtualhost jid, got %q", resp.Params.JID)
	}
	if resp.Params.BOSHServiceURL != "https://x/bosh" {
		t.Fatalf("expected remote bosh endpoint, got %+v", resp.Params)
	}
}

func TestMetadataPushRejectsNonXMPP(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/rooms/r/metadata", `{"type":"webrtc"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnreachableRemoteErrorSurface(t *testing.T) {
	h := newTestServer(t)

	// Remote room with no anonymous block and no s2s support.
	meta := `{"type": "xmpp", "jid": "room@dead.example.org", "xmppserver": {}}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/rooms/room@dead.example.org/metadata", meta, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// chat-only: soft failure, notice in the params.
	rec = doRequest(t, h, http.MethodGet, "/api/v1/rooms/room@dead.example.org/connection?mode=chat-only", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat-only must be soft, got %d", rec.Code)
	}
	resp := decodeConnection(t, rec)
	if resp.Params.Notice == "" || resp.Params.JID != "" {
		t.Fatalf("expected notice-only params, got %+v", resp.Params)
	}

	// embedded modes: hard failure.
	rec = doRequest(t, h, http.MethodGet, "/api/v1/rooms/room@dead.example.org/connection?mode=peertube-video", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("embedded mode must be hard, got %d: %s", rec.Code, rec.Body.String())
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil || errResp.Error != resolve.ErrCodeRoomNotReachable {
		t.Fatalf("expected room_not_reachable, got %s", rec.Body.String())
	}
}

func TestDiagnosticReportsAdvertisedEndpoints(t *testing.T) {
	h := newTestServer(t)

	bosh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest) // BOSH endpoints reject plain GETs
	}))
	t.Cleanup(bosh.Close)

	meta := `{
		"type": "xmpp",
		"jid": "room@conf.example.org",
		"xmppserver": {
			"anonymous": {"virtualhost": "conf.example.org", "bosh": "` + bosh.URL + `"}
		}
	}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/diagnostic", meta, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report diag.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.BOSH == nil || !report.BOSH.OK {
		t.Fatalf("expected reachable bosh endpoint, got %+v", report.BOSH)
	}
	if report.Websocket != nil {
		t.Fatalf("unadvertised websocket endpoint must not be reported")
	}
}
