package resolve

import (
	"fmt"
	"strings"

	"github.com/fedichat/livechat-connector/internal/caps"
)

// EmbeddingMode is how the host page hosts the widget, chosen at load time.
type EmbeddingMode string

const (
	ModeChatOnly         EmbeddingMode = "chat-only"
	ModePeertubeVideo    EmbeddingMode = "peertube-video"
	ModePeertubeFullpage EmbeddingMode = "peertube-fullpage"
)

// ParseEmbeddingMode validates an embedding mode tag from the host page.
func ParseEmbeddingMode(s string) (EmbeddingMode, error) {
	switch EmbeddingMode(s) {
	case ModeChatOnly, ModePeertubeVideo, ModePeertubeFullpage:
		return EmbeddingMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadEmbeddingMode, s)
	}
}

// RoomLocation says where a room lives. Remote rooms carry the remote
// server's metadata record.
type RoomLocation struct {
	Remote bool
	Room   string
	Meta   *caps.RoomMetadata
}

// LocalRoom locates a room on the local chat server. room may be a bare name
// or a full room address.
func LocalRoom(room string) RoomLocation {
	return RoomLocation{Room: room}
}

// RemoteRoom locates a room on a remote server described by meta.
func RemoteRoom(meta caps.RoomMetadata) RoomLocation {
	return RoomLocation{Remote: true, Room: meta.JID, Meta: &meta}
}

// UserPrefs are the per-request preferences forwarded by the host page.
type UserPrefs struct {
	AutoViewerMode   bool
	ForceReadonly    bool
	AdvancedControls bool
}

// AuthenticationMode is how the widget should authenticate to the server.
type AuthenticationMode string

const (
	AuthAnonymous AuthenticationMode = "anonymous"
	AuthLogin     AuthenticationMode = "login"
)

// ReconnectMode is the strategy the widget uses after an external sign-in
// completes. Pure function of the embedding mode.
type ReconnectMode string

const (
	ReconnectButtonCloseOpen ReconnectMode = "button-close-open"
	ReconnectReload          ReconnectMode = "reload"
)

// Branch identifies which of the five resolution branches was taken. The
// branches are mutually exclusive and exhaustive.
type Branch string

const (
	BranchLocalAuth          Branch = "local_auth"
	BranchLocalAnon          Branch = "local_anon"
	BranchRemoteAuth         Branch = "remote_auth"
	BranchRemoteAnonFallback Branch = "remote_anon_fallback"
	BranchUnreachable        Branch = "unreachable"
)

// TransportEndpoints are the client-facing endpoints the widget should dial.
type TransportEndpoints struct {
	BOSH      string `json:"bosh,omitempty"`
	Websocket string `json:"websocket,omitempty"`
}

// ConnectionConfig is the resolver's output: a finalized, immutable
// description of how the widget should connect. An empty JID means no viable
// connection path exists; in that state every other connection field is inert
// and the caller must short-circuit into its error path.
type ConnectionConfig struct {
	AttemptID          string             `json:"attempt_id"`
	Branch             Branch             `json:"branch"`
	JID                string             `json:"jid,omitempty"`
	Password           string             `json:"password,omitempty"`
	RoomJID            string             `json:"room_jid,omitempty"`
	AuthenticationMode AuthenticationMode `json:"authentication_mode,omitempty"`
	Endpoints          TransportEndpoints `json:"endpoints"`
	ViewerMode         bool               `json:"viewer_mode"`
	ViewerModePrompt   string             `json:"viewer_mode_prompt,omitempty"`
	ReadOnly           bool               `json:"readonly"`
	Nickname           string             `json:"nickname,omitempty"`
	OIDCProviders      []string           `json:"oidc_providers,omitempty"`
	OIDCReconnectMode  ReconnectMode      `json:"oidc_reconnect_mode,omitempty"`
	MiniHeader         bool               `json:"mini_header"`
	TaskAppEnabled     bool               `json:"task_app_enabled"`
	TaskAppRestorable  bool               `json:"task_app_restorable"`
}

// Reachable reports whether a viable connection path was found.
func (c ConnectionConfig) Reachable() bool {
	return c.JID != ""
}

// LocalServer describes the local chat server the connector fronts.
type LocalServer struct {
	Domain        string
	MUCDomain     string
	AnonymousHost string
	Endpoints     TransportEndpoints
	Caps          caps.ServerCaps
}

// roomJID expands a bare local room name to a full room address.
func (s LocalServer) roomJID(room string) string {
	if strings.Contains(room, "@") {
		return room
	}
	return room + "@" + s.MUCDomain
}
