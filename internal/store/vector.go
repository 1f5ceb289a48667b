package store

import (
	"database/sql"
	"encoding/json"
	"math"
)

// CurrentVectorDim returns the dimensionality the vector_chunks table is
// currently sized for, or 0 if no embedding has ever been stored.
func (s *Store) CurrentVectorDim() (int, error) {
	var dim int
	err := s.db.QueryRow(`SELECT dimensions FROM vector_meta WHERE id = 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, Internal(err, "read vector dimensions")
	}
	return dim, nil
}

// EnsureVectorDim guarantees the vector table is sized for dim. If an
// embedding provider's dimensionality changes (switching providers, or a
// provider's own dimension shifting between calls), every stored chunk is
// stale and must be recomputed: this drops all chunks, resets every
// ContextItem's embedding status to none, and records the new dimension.
// Recreated reports whether a reset actually occurred.
func (s *Store) EnsureVectorDim(dim int) (recreated bool, err error) {
	s.vecMu.Lock()
	defer s.vecMu.Unlock()
	return s.ensureVectorDimLocked(dim)
}

// ensureVectorDimLocked is EnsureVectorDim's body, factored out so callers
// that already hold vecMu (UpsertChunks) don't deadlock re-acquiring it.
func (s *Store) ensureVectorDimLocked(dim int) (recreated bool, err error) {
	if dim <= 0 {
		return false, Validation("dimensions must be positive")
	}

	current, err := s.CurrentVectorDim()
	if err != nil {
		return false, err
	}
	if current == dim {
		return false, nil
	}

	err = s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM vector_chunks`); err != nil {
			return Internal(err, "clear vector chunks")
		}
		if _, err := tx.Exec(`
			INSERT INTO vector_meta (id, dimensions) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET dimensions = excluded.dimensions`, dim); err != nil {
			return Internal(err, "update vector meta")
		}
		if _, err := tx.Exec(`UPDATE context_items SET embedding_status = 'none', embedding_provider = NULL, embedding_model = NULL, chunk_count = 0, embedded_at = NULL`); err != nil {
			return Internal(err, "reset embeddings for dimension change")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// VectorChunkInput is one chunk to persist for an item.
type VectorChunkInput struct {
	ChunkIndex int
	Embedding  []float32
}

// UpsertChunks replaces all stored chunks for itemID with chunks, and
// updates the item's embedding bookkeeping to reflect success.
func (s *Store) UpsertChunks(itemID, provider, model string, chunks []VectorChunkInput) error {
	if len(chunks) == 0 {
		return Validation("at least one chunk is required")
	}
	dim := len(chunks[0].Embedding)

	s.vecMu.Lock()
	defer s.vecMu.Unlock()
	if _, err := s.ensureVectorDimLocked(dim); err != nil {
		return err
	}

	return s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM vector_chunks WHERE item_id = ?`, itemID); err != nil {
			return Internal(err, "clear old chunks")
		}
		for _, c := range chunks {
			if len(c.Embedding) != dim {
				return Validation("inconsistent embedding dimension within chunk set")
			}
			encoded, err := json.Marshal(c.Embedding)
			if err != nil {
				return Internal(err, "marshal embedding")
			}
			if _, err := tx.Exec(`
				INSERT INTO vector_chunks (item_id, chunk_index, embedding, provider, model)
				VALUES (?, ?, ?, ?, ?)`, itemID, c.ChunkIndex, string(encoded), provider, model); err != nil {
				return Internal(err, "insert vector chunk")
			}
		}
		now := nowMS()
		if _, err := tx.Exec(`
			UPDATE context_items
			SET embedding_status = 'ok', embedding_provider = ?, embedding_model = ?, chunk_count = ?, embedded_at = ?
			WHERE id = ?`, provider, model, len(chunks), now, itemID); err != nil {
			return Internal(err, "update item embedding status")
		}
		return nil
	})
}

// VectorMatch is one ranked hit from a semantic Search.
type VectorMatch struct {
	ItemID     string
	ChunkIndex int
	Similarity float64
}

// Search runs a cosine-similarity scan of query against every stored chunk,
// optionally narrowed to the ContextItems of sessionID, keeping only matches
// at or above threshold, sorted by descending similarity and capped at
// limit. The table is scanned in Go rather than via a vector extension,
// which is adequate at the per-project scale this store targets.
func (s *Store) Search(query []float32, sessionID string, threshold float64, limit int) ([]VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	var err error
	if sessionID != "" {
		rows, err = s.db.Query(`
			SELECT vc.item_id, vc.chunk_index, vc.embedding
			FROM vector_chunks vc JOIN context_items ci ON ci.id = vc.item_id
			WHERE ci.session_id = ?`, sessionID)
	} else {
		rows, err = s.db.Query(`SELECT item_id, chunk_index, embedding FROM vector_chunks`)
	}
	if err != nil {
		return nil, Internal(err, "scan vector chunks")
	}
	defer rows.Close()

	var all []VectorMatch
	for rows.Next() {
		var itemID string
		var chunkIndex int
		var encoded string
		if err := rows.Scan(&itemID, &chunkIndex, &encoded); err != nil {
			return nil, Internal(err, "scan vector chunk row")
		}
		var vec []float32
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			return nil, Internal(err, "unmarshal vector chunk")
		}
		sim := cosineSimilarity(query, vec)
		if sim < threshold {
			continue
		}
		all = append(all, VectorMatch{ItemID: itemID, ChunkIndex: chunkIndex, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, Internal(err, "iterate vector chunks")
	}

	// Keep only each item's best-scoring chunk, then rank items.
	best := make(map[string]VectorMatch, len(all))
	for _, m := range all {
		if cur, ok := best[m.ItemID]; !ok || m.Similarity > cur.Similarity {
			best[m.ItemID] = m
		}
	}
	out := make([]VectorMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Similarity > out[i].Similarity {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
