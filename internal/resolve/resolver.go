package resolve

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fedichat/livechat-connector/internal/caps"
	"github.com/fedichat/livechat-connector/internal/identity"
)

// viewerNickBase is the label anonymous readonly viewers get; a random
// 6-digit suffix keeps concurrent viewers apart. Collision avoidance only,
// not a security property.
const viewerNickBase = "Viewer"

// Resolver turns (embedding mode, room location, identity, capabilities,
// preferences) into one finalized ConnectionConfig. It holds no per-attempt
// state; every call produces a fresh config.
type Resolver struct {
	local LocalServer
	log   *zerolog.Logger
}

// New builds a resolver for the given local server description.
func New(local LocalServer, logger *zerolog.Logger) *Resolver {
	return &Resolver{local: local, log: logger}
}

// Resolve evaluates the decision table. Exactly one of five branches is
// taken: local+auth, local+anon, remote+auth, remote+anon-fallback,
// remote+unreachable. The returned config is complete; callers never mutate
// it.
func (r *Resolver) Resolve(mode EmbeddingMode, loc RoomLocation, id identity.Identity, prefs UserPrefs) ConnectionConfig {
	attemptID := uuid.NewString()

	var cfg ConnectionConfig
	if id.Authenticated() {
		cfg = r.resolveAuthenticated(loc, id, prefs)
	} else {
		cfg = r.resolveAnonymous(loc, id, prefs)
	}
	cfg.AttemptID = attemptID

	cfg = finalize(cfg, mode, prefs)

	r.log.Debug().
		Str("attempt_id", cfg.AttemptID).
		Str("branch", string(cfg.Branch)).
		Str("mode", string(mode)).
		Bool("reachable", cfg.Reachable()).
		Msg("connection mode resolved")

	return cfg
}

func (r *Resolver) resolveAuthenticated(loc RoomLocation, id identity.Identity, prefs UserPrefs) ConnectionConfig {
	if !loc.Remote {
		return ConnectionConfig{
			Branch:             BranchLocalAuth,
			JID:                id.JID,
			Password:           id.Password,
			RoomJID:            r.local.roomJID(loc.Room),
			AuthenticationMode: AuthLogin,
			Endpoints:          r.local.Endpoints,
			Nickname:           id.Nickname,
		}
	}

	remote := caps.Probe(metaOrEmpty(loc))
	if remote.AuthenticatedRemoteAllowed && caps.S2SCompatible(r.local.Caps, loc.Meta.Server.Caps()) {
		return ConnectionConfig{
			Branch:             BranchRemoteAuth,
			JID:                id.JID,
			Password:           id.Password,
			RoomJID:            loc.Room,
			AuthenticationMode: AuthLogin,
			Endpoints:          r.remoteEndpoints(loc),
			Nickname:           id.Nickname,
		}
	}

	// The remote server cannot take the authenticated session; drop the
	// identity for this room and connect anonymously if it lets us.
	if remote.AnonymousAllowed {
		return r.anonymousRemote(loc, identity.None(), prefs)
	}

	return unreachable()
}

func (r *Resolver) resolveAnonymous(loc RoomLocation, id identity.Identity, prefs UserPrefs) ConnectionConfig {
	if !loc.Remote {
		cfg := ConnectionConfig{
			Branch:             BranchLocalAnon,
			JID:                r.local.AnonymousHost,
			RoomJID:            r.local.roomJID(loc.Room),
			AuthenticationMode: AuthAnonymous,
			Endpoints:          r.local.Endpoints,
			ViewerMode:         prefs.AutoViewerMode,
			ReadOnly:           prefs.ForceReadonly,
			OIDCProviders:      id.Providers,
		}
		if prefs.ForceReadonly {
			cfg.Nickname = randomViewerNick()
		}
		return cfg
	}

	remote := caps.Probe(metaOrEmpty(loc))
	if !remote.AnonymousAllowed {
		return unreachable()
	}
	return r.anonymousRemote(loc, id, prefs)
}

// anonymousRemote builds the remote anonymous branch. Callers have already
// established that the remote server allows it.
func (r *Resolver) anonymousRemote(loc RoomLocation, id identity.Identity, prefs UserPrefs) ConnectionConfig {
	anon := loc.Meta.Server.Anonymous
	cfg := ConnectionConfig{
		Branch:             BranchRemoteAnonFallback,
		JID:                anon.VirtualHost,
		RoomJID:            loc.Room,
		AuthenticationMode: AuthAnonymous,
		Endpoints: TransportEndpoints{
			BOSH:      anon.BOSH,
			Websocket: anon.Websocket,
		},
		ViewerMode:    prefs.AutoViewerMode,
		ReadOnly:      prefs.ForceReadonly,
		OIDCProviders: id.Providers,
	}
	if prefs.ForceReadonly {
		cfg.Nickname = randomViewerNick()
	}
	return cfg
}

// remoteEndpoints picks endpoints for an authenticated remote session:
// prefer what the remote advertises, fall back to the local server, which
// can always bridge over s2s.
func (r *Resolver) remoteEndpoints(loc RoomLocation) TransportEndpoints {
	if anon := loc.Meta.Server.Anonymous; anon != nil && (anon.BOSH != "" || anon.Websocket != "") {
		return TransportEndpoints{BOSH: anon.BOSH, Websocket: anon.Websocket}
	}
	return r.local.Endpoints
}

// finalize applies the embedding-mode overrides that are independent of the
// authentication branch. Runs last, after the branch is chosen.
func finalize(cfg ConnectionConfig, mode EmbeddingMode, prefs UserPrefs) ConnectionConfig {
	if !cfg.Reachable() {
		// Every other field must be inert when there is no path.
		return ConnectionConfig{AttemptID: cfg.AttemptID, Branch: BranchUnreachable}
	}

	// Viewer mode only ever applies to anonymous sessions.
	if cfg.AuthenticationMode == AuthLogin {
		cfg.ViewerMode = false
	}
	if cfg.ViewerMode {
		cfg.ViewerModePrompt = "Click to join the chat"
	}

	switch mode {
	case ModeChatOnly:
		cfg.OIDCReconnectMode = ReconnectReload
	case ModePeertubeVideo:
		cfg.OIDCReconnectMode = ReconnectButtonCloseOpen
		cfg.MiniHeader = true
	case ModePeertubeFullpage:
		cfg.OIDCReconnectMode = ReconnectButtonCloseOpen
	}

	cfg.TaskAppEnabled = cfg.AuthenticationMode == AuthLogin && prefs.AdvancedControls
	cfg.TaskAppRestorable = cfg.TaskAppEnabled && mode == ModePeertubeFullpage

	return cfg
}

func unreachable() ConnectionConfig {
	return ConnectionConfig{Branch: BranchUnreachable}
}

func metaOrEmpty(loc RoomLocation) caps.RoomMetadata {
	if loc.Meta == nil {
		return caps.RoomMetadata{}
	}
	return *loc.Meta
}

// randomViewerNick returns the viewer label with a uniform 6-digit suffix in
// [100000, 999999].
func randomViewerNick() string {
	return fmt.Sprintf("%s %d", viewerNickBase, 100000+rand.Intn(900000))
}
