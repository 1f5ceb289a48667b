// Package syncqueue implements the durable, exponential-backoff retry queue
// for asynchronous upload of sessions to a remote service.
package syncqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	baseBackoff  = 60 * time.Second
	capBackoff   = 3600 * time.Second
	maxRetries   = 5
	processEvery = 60 * time.Second
)

// Item is one pending sync payload.
type Item struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	Retries     int             `json:"retries"`
	NextRetryAt int64           `json:"next_retry_at"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// Uploader performs the actual remote upload, classifying failures per
// spec.md §4.6: network/5xx is retryable, 4xx (non-auth) drops the item,
// auth failures drop and signal re-authentication.
type Uploader interface {
	Upload(item Item) error
}

// FailureKind classifies why an Upload call failed.
type FailureKind int

const (
	FailureRetryable FailureKind = iota
	FailureDropNonAuth
	FailureDropAuth
)

// ClassifiedError lets an Uploader report which failure bucket it hit.
type ClassifiedError struct {
	Kind FailureKind
	Err  error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Queue is a file-backed, mutex-guarded durable queue. The file is the
// source of truth; the in-memory slice mirrors it and is re-persisted
// under the same lock after every mutation.
type Queue struct {
	mu       sync.Mutex
	path     string
	items    []Item
	uploader Uploader

	onAuthFailure func(itemID string)

	processing bool
	stopCh     chan struct{}
}

// Open loads path (creating an empty queue file if absent).
func Open(path string, uploader Uploader) (*Queue, error) {
	q := &Queue{path: path, uploader: uploader}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

// OnAuthFailure registers a callback invoked when an item is dropped for
// an auth failure, so the caller can surface a "sign in again" signal.
func (q *Queue) OnAuthFailure(fn func(itemID string)) { q.onAuthFailure = fn }

func (q *Queue) load() error {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		q.items = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sync queue: %w", err)
	}
	if len(data) == 0 {
		q.items = nil
		return nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse sync queue: %w", err)
	}
	q.items = items
	return nil
}

// persist atomically re-writes the queue file via write-temp-then-rename,
// so a crash mid-write never leaves a truncated queue file behind. Caller
// must hold q.mu.
func (q *Queue) persist() error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("marshal sync queue: %w", err)
	}
	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sync queue dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sync-queue-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp sync queue file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp sync queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp sync queue file: %w", err)
	}
	if err := os.Rename(tmpPath, q.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename sync queue file: %w", err)
	}
	return nil
}

// Enqueue adds a new payload with retries=0 and its first attempt scheduled
// one base backoff interval out, per spec.md §4.6's
// next_retry = now + min(base * 2^retries, cap) formula evaluated at
// retries=0.
func (q *Queue) Enqueue(id string, payload json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UnixMilli()
	q.items = append(q.items, Item{
		ID:          id,
		Payload:     payload,
		Retries:     0,
		NextRetryAt: now + nextRetryDelay(0).Milliseconds(),
		CreatedAt:   now,
	})
	return q.persist()
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the current queue contents, for sync_status.
func (q *Queue) Snapshot() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

func nextRetryDelay(retries int) time.Duration {
	d := baseBackoff
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= capBackoff {
			return capBackoff
		}
	}
	if d > capBackoff {
		return capBackoff
	}
	return d
}
