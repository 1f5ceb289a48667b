package syncqueue

import (
	"errors"
	"log"
	"time"
)

// Start launches the background processor: a single non-reentrant loop
// that wakes every 60s and also whenever SyncNow is called. Stop it with
// Close.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.stopCh != nil {
		q.mu.Unlock()
		return
	}
	q.stopCh = make(chan struct{})
	stop := q.stopCh
	q.mu.Unlock()

	go func() {
		ticker := time.NewTicker(processEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				q.processOnce()
			}
		}
	}()
}

// Close stops the background processor.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopCh != nil {
		close(q.stopCh)
		q.stopCh = nil
	}
}

// SyncNow triggers an immediate processing pass, used by the explicit
// sync_status/syncNow tool. It blocks until the pass completes.
func (q *Queue) SyncNow() {
	q.processOnce()
}

// processOnce is non-reentrant: a mutex around the whole pass means a
// SyncNow call overlapping the ticker simply waits its turn rather than
// running concurrently.
func (q *Queue) processOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UnixMilli()
	var remaining []Item
	mutated := false

	for _, item := range q.items {
		if item.NextRetryAt > now {
			remaining = append(remaining, item)
			continue
		}

		err := q.uploader.Upload(item)
		if err == nil {
			mutated = true
			continue // drop: uploaded successfully
		}

		kind := classify(err)
		switch kind {
		case FailureDropAuth:
			log.Printf("syncqueue: dropping item %s after auth failure: %v", item.ID, err)
			mutated = true
			if q.onAuthFailure != nil {
				q.onAuthFailure(item.ID)
			}
		case FailureDropNonAuth:
			log.Printf("syncqueue: dropping item %s after non-retryable failure: %v", item.ID, err)
			mutated = true
		default:
			item.Retries++
			item.LastError = err.Error()
			if item.Retries >= maxRetries {
				log.Printf("syncqueue: dropping item %s after %d retries: %v", item.ID, item.Retries, err)
				mutated = true
				continue
			}
			item.NextRetryAt = now + nextRetryDelay(item.Retries).Milliseconds()
			remaining = append(remaining, item)
			mutated = true
		}
	}

	if mutated {
		q.items = remaining
		if err := q.persist(); err != nil {
			log.Printf("syncqueue: failed to persist after processing: %v", err)
		}
	}
}

func classify(err error) FailureKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return FailureRetryable
}
