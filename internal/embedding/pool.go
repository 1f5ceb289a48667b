package embedding

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/savecontext/savecontext/internal/store"
)

// Backpressure configuration: a full job queue is retried briefly before
// the submission is dropped, mirroring the bus's send-with-backpressure
// idiom rather than blocking the caller (context-item saves must return
// immediately).
const (
	maxBackpressureRetries = 3
	backpressureRetryDelay = 10 * time.Millisecond
)

// job is one pending embed-and-upsert task.
type job struct {
	itemID string
	text   string
}

// Pool is a bounded worker pool that generates embeddings for ContextItems
// in the background, never blocking the RPC call that triggered it.
type Pool struct {
	store    *store.Store
	provider Provider

	queue   chan job
	wg      sync.WaitGroup
	dropped uint64

	mu     sync.Mutex
	closed bool
}

// NewPool starts n workers pulling from a queue of size capacity.
func NewPool(s *store.Store, provider Provider, workers, capacity int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if capacity <= 0 {
		capacity = 200
	}
	p := &Pool{
		store:    s,
		provider: provider,
		queue:    make(chan job, capacity),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// SetProvider swaps the active provider, used after a config-driven
// provider change. Callers must have already run EnsureVectorDim.
func (p *Pool) SetProvider(provider Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider = provider
}

// Submit enqueues itemID for embedding generation, returning immediately.
// If the queue is full, it retries briefly before dropping and logging —
// the item stays in `pending` and is picked up by the next backfill pass.
func (p *Pool) Submit(itemID, text string) {
	j := job{itemID: itemID, text: text}

	select {
	case p.queue <- j:
		return
	default:
	}

	for retry := 1; retry <= maxBackpressureRetries; retry++ {
		time.Sleep(backpressureRetryDelay)
		select {
		case p.queue <- j:
			return
		default:
		}
	}

	dropped := atomic.AddUint64(&p.dropped, 1)
	log.Printf("embedding: dropped submission for item %s after %d retries (queue full, total dropped: %d)",
		itemID, maxBackpressureRetries, dropped)
}

// DroppedCount returns how many submissions were dropped due to backpressure.
func (p *Pool) DroppedCount() uint64 { return atomic.LoadUint64(&p.dropped) }

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.queue {
		p.process(j)
	}
}

func (p *Pool) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	p.mu.Lock()
	provider := p.provider
	p.mu.Unlock()

	if provider == nil || !provider.IsAvailable(ctx) {
		return // leave status=pending; startup backfill retries later
	}

	chunks := ChunkText(j.text, provider.MaxChars())
	inputs := make([]store.VectorChunkInput, 0, len(chunks))
	for _, c := range chunks {
		vec, err := provider.Generate(ctx, c.Text)
		if err != nil {
			_ = p.store.SetEmbeddingStatus(j.itemID, store.EmbeddingError, provider.Name(), provider.Model(), 0)
			return
		}
		inputs = append(inputs, store.VectorChunkInput{ChunkIndex: c.Index, Embedding: vec})
	}

	if err := p.store.UpsertChunks(j.itemID, provider.Name(), provider.Model(), inputs); err != nil {
		_ = p.store.SetEmbeddingStatus(j.itemID, store.EmbeddingError, provider.Name(), provider.Model(), 0)
	}
}

// Close stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
}
