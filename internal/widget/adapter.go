package widget

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/resolve"
)

// NoticeRoomNotAccessible is the soft-failure message rendered in chat-only
// embeddings when no connection path exists.
const NoticeRoomNotAccessible = "This room is not accessible"

// Initializer abstracts the embedded chat client's boot call. The real one
// lives in the host page; tests and the offline CLI supply their own.
type Initializer interface {
	Initialize(ctx context.Context, params InitParams) error
}

// Adapter translates a resolved connection configuration into the embedded
// client's initialization vocabulary and applies the error surface: a
// chat-only embedding renders a notice when the room is unreachable, every
// other embedding treats that as a hard failure.
type Adapter struct {
	init Initializer
	log  *zerolog.Logger
}

// NewAdapter builds an adapter. init may be nil when the caller only wants
// the translated parameters.
func NewAdapter(init Initializer, logger *zerolog.Logger) *Adapter {
	return &Adapter{init: init, log: logger}
}

// Apply translates cfg and, when an initializer is present, boots the
// widget. An initialization failure is logged and surfaced once; this layer
// never retries.
func (a *Adapter) Apply(ctx context.Context, mode resolve.EmbeddingMode, cfg resolve.ConnectionConfig) (InitParams, error) {
	if !cfg.Reachable() {
		if mode == resolve.ModeChatOnly {
			a.log.Info().Str("attempt_id", cfg.AttemptID).Msg("room not reachable, rendering notice")
			return InitParams{Notice: NoticeRoomNotAccessible}, nil
		}
		return InitParams{}, &resolve.ResolveError{
			Code:    resolve.ErrCodeRoomNotReachable,
			Message: resolve.ErrRoomNotReachable.Error(),
		}
	}

	params := paramsFrom(cfg)

	if a.init != nil {
		if err := a.init.Initialize(ctx, params); err != nil {
			a.log.Error().Err(err).Str("attempt_id", cfg.AttemptID).Msg("widget initialization failed")
			return InitParams{}, &resolve.ResolveError{
				Code:    resolve.ErrCodeWidgetInitFailed,
				Message: fmt.Sprintf("widget initialization failed: %v", err),
			}
		}
	}

	return params, nil
}

func paramsFrom(cfg resolve.ConnectionConfig) InitParams {
	params := InitParams{
		JID:                cfg.JID,
		Password:           cfg.Password,
		Room:               cfg.RoomJID,
		AuthenticationMode: string(cfg.AuthenticationMode),
		BOSHServiceURL:     cfg.Endpoints.BOSH,
		WebsocketURL:       cfg.Endpoints.Websocket,
		Nickname:           cfg.Nickname,
		ViewerMode:         cfg.ViewerMode,
		ViewerModePrompt:   cfg.ViewerModePrompt,
		ReadOnly:           cfg.ReadOnly,
		MiniHeader:         cfg.MiniHeader,
		OIDCProviders:      cfg.OIDCProviders,
		OIDCReconnectMode:  string(cfg.OIDCReconnectMode),
	}
	for _, p := range SelectPlugins(cfg) {
		params.Plugins = append(params.Plugins, p.Name())
	}
	return params
}
