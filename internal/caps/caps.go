package caps

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TypeXMPP is the marker a room metadata record must carry to be usable.
const TypeXMPP = "xmpp"

var ErrNotXMPP = errors.New("metadata is not an xmpp chat record")

// RoomMetadata is the structured record a host page publishes for a chat
// room. Remote rooms additionally carry an "xmppserver" block describing the
// remote server's connection capabilities.
type RoomMetadata struct {
	Type   string          `json:"type"`
	JID    string          `json:"jid"`
	Server *ServerMetadata `json:"xmppserver,omitempty"`
}

// ServerMetadata is the remote server's capability advertisement.
type ServerMetadata struct {
	Anonymous    *AnonymousHost `json:"anonymous,omitempty"`
	WebsocketS2S bool           `json:"websockets2s"`
	DirectS2S    bool           `json:"directs2s"`
}

// AnonymousHost describes the remote server's anonymous virtual host and its
// client-facing endpoints.
type AnonymousHost struct {
	VirtualHost string `json:"virtualhost"`
	BOSH        string `json:"bosh,omitempty"`
	Websocket   string `json:"websocket,omitempty"`
}

// ServerCaps is the transport side of a capability advertisement, usable for
// either the local or the remote server.
type ServerCaps struct {
	WebsocketS2S bool
	DirectS2S    bool
}

// Capabilities answers what kinds of connection a remote room admits.
type Capabilities struct {
	AnonymousAllowed           bool
	AuthenticatedRemoteAllowed bool
}

// ParseRoomMetadata decodes a raw metadata record. A record whose type is not
// the XMPP marker is rejected; callers treat any error as "no capabilities".
func ParseRoomMetadata(raw []byte) (RoomMetadata, error) {
	var meta RoomMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return RoomMetadata{}, fmt.Errorf("decode room metadata: %w", err)
	}
	if meta.Type != TypeXMPP {
		return RoomMetadata{}, ErrNotXMPP
	}
	return meta, nil
}

// Probe inspects a remote room's metadata and reports its capabilities.
// Missing or malformed blocks resolve to false, never to an error: downstream
// treats "no capability" the same as "room inaccessible".
func Probe(meta RoomMetadata) Capabilities {
	if meta.Type != TypeXMPP || meta.Server == nil {
		return Capabilities{}
	}

	var c Capabilities

	// An anonymous host with no reachable endpoint does not count.
	if anon := meta.Server.Anonymous; anon != nil && anon.VirtualHost != "" {
		c.AnonymousAllowed = anon.BOSH != "" || anon.Websocket != ""
	}

	c.AuthenticatedRemoteAllowed = meta.Server.WebsocketS2S || meta.Server.DirectS2S

	return c
}

// Caps extracts the s2s transport advertisement from server metadata.
func (m *ServerMetadata) Caps() ServerCaps {
	if m == nil {
		return ServerCaps{}
	}
	return ServerCaps{
		WebsocketS2S: m.WebsocketS2S,
		DirectS2S:    m.DirectS2S,
	}
}

// S2SCompatible reports whether two servers share a federation transport.
// The test is pairwise per transport and deliberately conservative: a server
// pair that mixes transports per direction is reported incompatible even if
// an asymmetric setup could in fact bridge.
func S2SCompatible(local, remote ServerCaps) bool {
	if local.WebsocketS2S && remote.WebsocketS2S {
		return true
	}
	if local.DirectS2S && remote.DirectS2S {
		return true
	}
	return false
}
