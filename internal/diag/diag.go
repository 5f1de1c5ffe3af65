package diag

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
)

// EndpointReport is the reachability result for a single advertised endpoint.
type EndpointReport struct {
	URL     string        `json:"url"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// Report covers every endpoint a room metadata record advertises. Purely
// informational: resolution never consults it.
type Report struct {
	Room      string          `json:"room"`
	BOSH      *EndpointReport `json:"bosh,omitempty"`
	Websocket *EndpointReport `json:"websocket,omitempty"`
}

// Checker dials advertised endpoints to verify they answer at all.
type Checker struct {
	client  *http.Client
	timeout time.Duration
	log     *zerolog.Logger
}

// NewChecker builds a checker. client may be nil.
func NewChecker(timeout time.Duration, client *http.Client, logger *zerolog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Checker{client: client, timeout: timeout, log: logger}
}

// CheckRoom probes the anonymous endpoints a metadata record advertises.
// Endpoints that are not advertised are not reported on.
func (c *Checker) CheckRoom(ctx context.Context, meta caps.RoomMetadata) Report {
	report := Report{Room: meta.JID}

	if meta.Server == nil || meta.Server.Anonymous == nil {
		return report
	}
	anon := meta.Server.Anonymous

	if anon.BOSH != "" {
		report.BOSH = c.checkBOSH(ctx, anon.BOSH)
	}
	if anon.Websocket != "" {
		report.Websocket = c.checkWebsocket(ctx, anon.Websocket)
	}

	c.log.Debug().
		Str("room", meta.JID).
		Bool("bosh_ok", report.BOSH != nil && report.BOSH.OK).
		Bool("websocket_ok", report.Websocket != nil && report.Websocket.OK).
		Msg("endpoint diagnostic complete")

	return report
}

// checkBOSH issues a plain GET. BOSH endpoints routinely answer 400 to a
// non-BOSH request, so any HTTP response at all counts as reachable.
func (c *Checker) checkBOSH(ctx context.Context, url string) *EndpointReport {
	report := &EndpointReport{URL: url}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		report.Latency = time.Since(start)
		report.Error = err.Error()
		return report
	}

	resp, err := c.client.Do(req)
	report.Latency = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	resp.Body.Close()

	report.OK = true
	return report
}

func (c *Checker) checkWebsocket(ctx context.Context, url string) *EndpointReport {
	report := &EndpointReport{URL: url}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient:   c.client,
		Subprotocols: []string{"xmpp"},
	})
	report.Latency = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	conn.Close(websocket.StatusNormalClosure, "diagnostic complete")

	report.OK = true
	return report
}
