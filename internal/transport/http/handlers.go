package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
	"github.com/fedichat/livechat-connector/internal/diag"
	"github.com/fedichat/livechat-connector/internal/identity"
	"github.com/fedichat/livechat-connector/internal/resolve"
	"github.com/fedichat/livechat-connector/internal/store"
	"github.com/fedichat/livechat-connector/internal/widget"
)

// maxMetadataBytes bounds pushed metadata documents.
const maxMetadataBytes = 64 << 10

// Handlers provides the connection-resolution API endpoints.
type Handlers struct {
	provider    *identity.Provider
	resolver    *resolve.Resolver
	adapter     *widget.Adapter
	checker     *diag.Checker
	metaStore   store.MetadataStore
	metadataTTL time.Duration
	prefs       resolve.UserPrefs
	log         *zerolog.Logger
}

// NewHandlers creates the API handlers instance.
func NewHandlers(
	provider *identity.Provider,
	resolver *resolve.Resolver,
	adapter *widget.Adapter,
	checker *diag.Checker,
	metaStore store.MetadataStore,
	metadataTTL time.Duration,
	defaultPrefs resolve.UserPrefs,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		provider:    provider,
		resolver:    resolver,
		adapter:     adapter,
		checker:     checker,
		metaStore:   metaStore,
		metadataTTL: metadataTTL,
		prefs:       defaultPrefs,
		log:         logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConnectionResponse is the resolution result returned to the host page.
type ConnectionResponse struct {
	AttemptID string            `json:"attempt_id"`
	Branch    string            `json:"branch"`
	Params    widget.InitParams `json:"params"`
}

// Connection resolves the connection configuration for a room.
// GET /api/v1/rooms/:room/connection?mode=<embedding-mode>
func (h *Handlers) Connection(c *gin.Context) {
	ctx := c.Request.Context()
	room := c.Param("room")

	mode, err := resolve.ParseEmbeddingMode(c.DefaultQuery("mode", string(resolve.ModeChatOnly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: resolve.ErrCodeBadEmbeddingMode})
		return
	}

	prefs := h.prefsFrom(c)
	tryOIDC := boolQuery(c, "try_oidc", true)

	// The identity lookup is the only suspension point; the resolver must
	// not branch on a partial result, so it runs strictly after.
	id := h.provider.Resolve(ctx, tokenFrom(c), tryOIDC)
	if ctx.Err() != nil {
		// Host page went away mid-lookup; apply nothing.
		c.Status(http.StatusRequestTimeout)
		return
	}

	loc := h.roomLocation(c, room)
	cfg := h.resolver.Resolve(mode, loc, id, prefs)

	params, err := h.adapter.Apply(ctx, mode, cfg)
	if err != nil {
		var rerr *resolve.ResolveError
		if errors.As(err, &rerr) && rerr.Code == resolve.ErrCodeRoomNotReachable {
			c.JSON(http.StatusConflict, ErrorResponse{Error: rerr.Code})
			return
		}
		h.log.Error().Err(err).Str("room", room).Msg("failed to apply connection config")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ConnectionResponse{
		AttemptID: cfg.AttemptID,
		Branch:    string(cfg.Branch),
		Params:    params,
	})
}

// PutMetadata stores a remote room's capability record pushed by the host page.
// POST /api/v1/rooms/:room/metadata
func (h *Handlers) PutMetadata(c *gin.Context) {
	room := c.Param("room")

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMetadataBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := caps.ParseRoomMetadata(raw); err != nil {
		h.log.Debug().Err(err).Str("room", room).Msg("rejecting metadata push")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room metadata"})
		return
	}

	if err := h.metaStore.PutRoomMetadata(c.Request.Context(), room, raw); err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to store room metadata")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Diagnostic dials the endpoints a supplied metadata record advertises.
// POST /api/v1/diagnostic
func (h *Handlers) Diagnostic(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMetadataBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	meta, err := caps.ParseRoomMetadata(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room metadata"})
		return
	}

	c.JSON(http.StatusOK, h.checker.CheckRoom(c.Request.Context(), meta))
}

// roomLocation decides whether a room is local or remote. A room is remote
// iff the host page has pushed a capability record for it; a record that no
// longer parses still marks the room remote, just capability-free.
func (h *Handlers) roomLocation(c *gin.Context, room string) resolve.RoomLocation {
	rec, err := h.metaStore.GetRoomMetadata(c.Request.Context(), room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn().Err(err).Str("room", room).Msg("metadata lookup failed, treating room as local")
		}
		return resolve.LocalRoom(room)
	}

	if rec.Stale(h.metadataTTL, time.Now()) {
		h.log.Debug().Str("room", room).Time("fetched_at", rec.FetchedAt).Msg("using stale room metadata")
	}

	meta, err := caps.ParseRoomMetadata(rec.Raw)
	if err != nil {
		h.log.Debug().Err(err).Str("room", room).Msg("cached metadata unusable, room has no capabilities")
		meta = caps.RoomMetadata{}
	}
	if meta.JID == "" {
		meta.JID = room
	}
	return resolve.RemoteRoom(meta)
}

func (h *Handlers) prefsFrom(c *gin.Context) resolve.UserPrefs {
	return resolve.UserPrefs{
		AutoViewerMode:   boolQuery(c, "auto_viewer_mode", h.prefs.AutoViewerMode),
		ForceReadonly:    boolQuery(c, "force_readonly", h.prefs.ForceReadonly),
		AdvancedControls: boolQuery(c, "advanced_controls", h.prefs.AdvancedControls),
	}
}

func boolQuery(c *gin.Context, key string, fallback bool) bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
