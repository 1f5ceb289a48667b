package store

import (
	"time"

	"github.com/google/uuid"
)

// newID generates an opaque 128-bit identifier for a new row.
func newID() string {
	return uuid.NewString()
}

// nowMS returns the current time as epoch milliseconds, the timestamp unit
// used throughout the data model.
func nowMS() int64 {
	return time.Now().UnixMilli()
}

// NowMS exposes nowMS to callers outside the package (e.g. the RPC layer's
// auto-named pre-compaction checkpoints).
func NowMS() int64 {
	return nowMS()
}
