package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("not found")

// RoomMetadataRecord is a cached remote-room capability record. Raw is the
// metadata document exactly as the host page published it; the capability
// probe re-parses it on read so a malformed cached record degrades the same
// way a malformed live one does.
type RoomMetadataRecord struct {
	Room      string
	Raw       []byte
	FetchedAt time.Time
}

// Stale reports whether the record is older than ttl. A zero ttl means
// records never go stale.
func (r *RoomMetadataRecord) Stale(ttl time.Duration, now time.Time) bool {
	if ttl == 0 {
		return false
	}
	return now.Sub(r.FetchedAt) > ttl
}

// MetadataStore persists remote-room capability records, fetched once per
// room and treated as read-only by resolution attempts.
type MetadataStore interface {
	GetRoomMetadata(ctx context.Context, room string) (*RoomMetadataRecord, error)
	PutRoomMetadata(ctx context.Context, room string, raw []byte) error
	DeleteRoomMetadata(ctx context.Context, room string) error
	Close() error
}
