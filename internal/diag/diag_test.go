package diag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
)

func newTestChecker() *Checker {
	logger := zerolog.Nop()
	return NewChecker(time.Second, nil, &logger)
}

func TestCheckRoomWithoutAnonymousBlock(t *testing.T) {
	c := newTestChecker()

	report := c.CheckRoom(context.Background(), caps.RoomMetadata{
		Type: caps.TypeXMPP,
		JID:  "room@conf.example.org",
	})

	if report.BOSH != nil || report.Websocket != nil {
		t.Fatalf("no endpoints advertised, none should be reported: %+v", report)
	}
}

func TestCheckBOSHAnyResponseCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A real BOSH endpoint rejects a plain GET.
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := newTestChecker()
	report := c.CheckRoom(context.Background(), caps.RoomMetadata{
		Type: caps.TypeXMPP,
		JID:  "room@conf.example.org",
		Server: &caps.ServerMetadata{
			Anonymous: &caps.AnonymousHost{VirtualHost: "conf.example.org", BOSH: srv.URL},
		},
	})

	if report.BOSH == nil || !report.BOSH.OK {
		t.Fatalf("HTTP 400 still proves the endpoint answers: %+v", report.BOSH)
	}
}

func TestCheckBOSHUnreachable(t *testing.T) {
	c := newTestChecker()
	report := c.CheckRoom(context.Background(), caps.RoomMetadata{
		Type: caps.TypeXMPP,
		JID:  "room@conf.example.org",
		Server: &caps.ServerMetadata{
			Anonymous: &caps.AnonymousHost{VirtualHost: "conf.example.org", BOSH: "http://127.0.0.1:1/http-bind"},
		},
	})

	if report.BOSH == nil || report.BOSH.OK {
		t.Fatalf("expected failed bosh check, got %+v", report.BOSH)
	}
	if report.BOSH.Error == "" {
		t.Fatalf("failed check must carry an error")
	}
}

func TestCheckBOSHInvalidURLStillTimed(t *testing.T) {
	c := newTestChecker()
	report := c.CheckRoom(context.Background(), caps.RoomMetadata{
		Type: caps.TypeXMPP,
		JID:  "room@conf.example.org",
		Server: &caps.ServerMetadata{
			Anonymous: &caps.AnonymousHost{VirtualHost: "conf.example.org", BOSH: "://not-a-url"},
		},
	})

	if report.BOSH == nil || report.BOSH.OK {
		t.Fatalf("expected failed bosh check, got %+v", report.BOSH)
	}
	if report.BOSH.Error == "" {
		t.Fatalf("failed check must carry an error")
	}
	if report.BOSH.Latency <= 0 {
		t.Fatalf("every exit must record latency, got %v", report.BOSH.Latency)
	}
}

func TestCheckWebsocketUnreachable(t *testing.T) {
	c := newTestChecker()
	report := c.CheckRoom(context.Background(), caps.RoomMetadata{
		Type: caps.TypeXMPP,
		JID:  "room@conf.example.org",
		Server: &caps.ServerMetadata{
			Anonymous: &caps.AnonymousHost{VirtualHost: "conf.example.org", Websocket: "ws://127.0.0.1:1/ws"},
		},
	})

	if report.Websocket == nil || report.Websocket.OK {
		t.Fatalf("expected failed websocket check, got %+v", report.Websocket)
	}
}
