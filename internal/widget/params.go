package widget

// InitParams is the initialization vocabulary of the embedded chat client.
// The adapter fills it from a resolved connection configuration; the host
// page passes it to the widget verbatim.
type InitParams struct {
	JID                string   `json:"jid,omitempty"`
	Password           string   `json:"password,omitempty"`
	Room               string   `json:"room,omitempty"`
	AuthenticationMode string   `json:"authentication_mode,omitempty"`
	BOSHServiceURL     string   `json:"bosh_service_url,omitempty"`
	WebsocketURL       string   `json:"websocket_url,omitempty"`
	Nickname           string   `json:"nickname,omitempty"`
	ViewerMode         bool     `json:"viewer_mode"`
	ViewerModePrompt   string   `json:"viewer_mode_prompt,omitempty"`
	ReadOnly           bool     `json:"readonly"`
	MiniHeader         bool     `json:"mini_header"`
	OIDCProviders      []string `json:"oidc_providers,omitempty"`
	OIDCReconnectMode  string   `json:"oidc_reconnect_mode,omitempty"`
	Plugins            []string `json:"plugins,omitempty"`

	// Notice carries the user-visible "room not accessible" message for the
	// soft-failure path. When set, every connection field above is empty.
	Notice string `json:"notice,omitempty"`
}
