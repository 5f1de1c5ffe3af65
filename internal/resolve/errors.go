package resolve

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotReachable = "room_not_reachable"
	ErrCodeBadEmbeddingMode = "bad_embedding_mode"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeWidgetInitFailed = "widget_init_failed"
)

var (
	ErrRoomNotReachable = errors.New("no viable connection path to room")
	ErrBadEmbeddingMode = errors.New("unknown embedding mode")
)

// ResolveError wraps a code and human-readable message.
type ResolveError struct {
	Code    string
	Message string
}

func (e *ResolveError) Error() string {
	return e.Message
}
