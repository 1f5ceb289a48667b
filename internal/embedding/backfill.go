package embedding

import (
	"context"
	"log"

	"github.com/savecontext/savecontext/internal/store"
)

const backfillBatchSize = 50

// Reconcile runs the startup sequence from spec.md §4.4: ensure the vector
// table matches the active provider's dimensionality (resetting every item
// to `none` if it didn't), then process the none/error backlog in batches.
// It returns whether the vector table was recreated.
func Reconcile(ctx context.Context, s *store.Store, provider Provider) (bool, error) {
	if !provider.IsAvailable(ctx) {
		return false, nil
	}
	recreated, err := s.EnsureVectorDim(provider.Dimensions())
	if err != nil {
		return false, err
	}
	if err := Backfill(ctx, s, provider); err != nil {
		return recreated, err
	}
	return recreated, nil
}

// Backfill synchronously embeds every item with status none or error, in
// batches, until none remain or the context is cancelled. Called both at
// startup and by the `embeddings backfill` CLI command.
func Backfill(ctx context.Context, s *store.Store, provider Provider) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		items, err := s.ItemsNeedingEmbedding(backfillBatchSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		for _, item := range items {
			if err := embedOne(ctx, s, provider, item); err != nil {
				log.Printf("embedding: backfill failed for item %s: %v", item.ID, err)
			}
		}
	}
}

func embedOne(ctx context.Context, s *store.Store, provider Provider, item *store.ContextItem) error {
	if !provider.IsAvailable(ctx) {
		return nil
	}
	chunks := ChunkText(item.Value, provider.MaxChars())
	inputs := make([]store.VectorChunkInput, 0, len(chunks))
	for _, c := range chunks {
		vec, err := provider.Generate(ctx, c.Text)
		if err != nil {
			return s.SetEmbeddingStatus(item.ID, store.EmbeddingError, provider.Name(), provider.Model(), 0)
		}
		inputs = append(inputs, store.VectorChunkInput{ChunkIndex: c.Index, Embedding: vec})
	}
	return s.UpsertChunks(item.ID, provider.Name(), provider.Model(), inputs)
}
