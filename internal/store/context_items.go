package store

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// SaveContextItem inserts or overwrites the item at (sessionID, key). On
// overwrite, created_at is preserved and updated_at is refreshed, per the
// round-trip idempotence property.
func (s *Store) SaveContextItem(sessionID, key, value string, category ItemCategory, priority ItemPriority, channel string, tags []string) (*ContextItem, error) {
	if key == "" {
		return nil, Validation("key is required")
	}
	if len(value) > MaxContextValueBytes {
		return nil, Validation("value exceeds %d bytes", MaxContextValueBytes)
	}
	if category == "" {
		category = CategoryNote
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, Internal(err, "marshal tags")
	}

	now := nowMS()
	item := &ContextItem{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		Category:  category,
		Priority:  priority,
		Channel:   channel,
		Tags:      tags,
		Size:      len(value),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.WithTx(func(tx *sql.Tx) error {
		var existingID string
		var createdAt int64
		err := tx.QueryRow(`SELECT id, created_at FROM context_items WHERE session_id = ? AND key = ?`,
			sessionID, key).Scan(&existingID, &createdAt)
		switch {
		case err == sql.ErrNoRows:
			item.ID = newID()
			_, err := tx.Exec(`
				INSERT INTO context_items (id, session_id, key, value, category, priority, channel, tags, size, created_at, updated_at, embedding_status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
				item.ID, item.SessionID, item.Key, item.Value, item.Category, item.Priority,
				item.Channel, string(tagsJSON), item.Size, item.CreatedAt, item.UpdatedAt,
			)
			if err != nil {
				return Internal(err, "insert context item")
			}
			item.EmbeddingStatus = EmbeddingPending
			return nil
		case err != nil:
			return Internal(err, "check existing context item")
		default:
			item.ID = existingID
			item.CreatedAt = createdAt
			_, err := tx.Exec(`
				UPDATE context_items
				SET value = ?, category = ?, priority = ?, channel = ?, tags = ?, size = ?, updated_at = ?,
				    embedding_status = 'pending', chunk_count = 0, embedded_at = NULL
				WHERE id = ?`,
				item.Value, item.Category, item.Priority, item.Channel, string(tagsJSON), item.Size, item.UpdatedAt, item.ID,
			)
			if err != nil {
				return Internal(err, "update context item")
			}
			item.EmbeddingStatus = EmbeddingPending
			if _, err := tx.Exec(`DELETE FROM vector_chunks WHERE item_id = ?`, item.ID); err != nil {
				return Internal(err, "clear stale chunks")
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanContextItem(row interface {
	Scan(dest ...interface{}) error
}) (*ContextItem, error) {
	var item ContextItem
	var tagsJSON string
	var embProvider, embModel sql.NullString
	var embeddedAt sql.NullInt64
	err := row.Scan(&item.ID, &item.SessionID, &item.Key, &item.Value, &item.Category, &item.Priority,
		&item.Channel, &tagsJSON, &item.Size, &item.CreatedAt, &item.UpdatedAt,
		&item.EmbeddingStatus, &embProvider, &embModel, &item.ChunkCount, &embeddedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("context item not found")
	}
	if err != nil {
		return nil, Internal(err, "scan context item")
	}
	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		return nil, Internal(err, "unmarshal tags")
	}
	item.EmbeddingProvider = embProvider.String
	item.EmbeddingModel = embModel.String
	item.EmbeddedAt = int64Ptr(embeddedAt)
	return &item, nil
}

const contextItemColumns = `id, session_id, key, value, category, priority, channel, tags, size, created_at, updated_at, embedding_status, embedding_provider, embedding_model, chunk_count, embedded_at`

// GetContextItem fetches one item by (sessionID, key).
func (s *Store) GetContextItem(sessionID, key string) (*ContextItem, error) {
	row := s.db.QueryRow(`SELECT `+contextItemColumns+` FROM context_items WHERE session_id = ? AND key = ?`, sessionID, key)
	return scanContextItem(row)
}

// GetContextItemByID fetches one item by id.
func (s *Store) GetContextItemByID(id string) (*ContextItem, error) {
	row := s.db.QueryRow(`SELECT `+contextItemColumns+` FROM context_items WHERE id = ?`, id)
	return scanContextItem(row)
}

// ContextItemListFilter narrows ListContextItems.
type ContextItemListFilter struct {
	Category ItemCategory
	Priority ItemPriority
	Channel  string
	Tag      string
	Limit    int
}

// ListContextItems returns items in sessionID matching filter.
func (s *Store) ListContextItems(sessionID string, f ContextItemListFilter) ([]*ContextItem, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT ` + contextItemColumns + ` FROM context_items WHERE session_id = ?`)
	args := []interface{}{sessionID}
	if f.Category != "" {
		q.WriteString(` AND category = ?`)
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		q.WriteString(` AND priority = ?`)
		args = append(args, f.Priority)
	}
	if f.Channel != "" {
		q.WriteString(` AND channel = ?`)
		args = append(args, f.Channel)
	}
	if f.Tag != "" {
		q.WriteString(` AND tags LIKE ?`)
		args = append(args, "%\""+f.Tag+"\"%")
	}
	q.WriteString(` ORDER BY updated_at DESC`)
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	q.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, Internal(err, "list context items")
	}
	defer rows.Close()

	var out []*ContextItem
	for rows.Next() {
		item, err := scanContextItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteContextItem removes an item along with its vector chunks and
// checkpoint membership references.
func (s *Store) DeleteContextItem(id string) error {
	return s.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM context_items WHERE id = ?`, id)
		if err != nil {
			return Internal(err, "delete context item")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NotFound("context item not found: %s", id)
		}
		if _, err := tx.Exec(`DELETE FROM vector_chunks WHERE item_id = ?`, id); err != nil {
			return Internal(err, "delete vector chunks")
		}
		if _, err := tx.Exec(`DELETE FROM checkpoint_items WHERE context_item_id = ?`, id); err != nil {
			return Internal(err, "delete checkpoint item refs")
		}
		return nil
	})
}

// SetEmbeddingStatus updates the embedding bookkeeping fields on an item.
// Called by the embedding pipeline worker, never by RPC handlers directly.
func (s *Store) SetEmbeddingStatus(itemID string, status EmbeddingStatus, provider, model string, chunkCount int) error {
	var embeddedAt sql.NullInt64
	if status == EmbeddingOK {
		embeddedAt = sql.NullInt64{Int64: nowMS(), Valid: true}
	}
	_, err := s.db.Exec(`
		UPDATE context_items
		SET embedding_status = ?, embedding_provider = ?, embedding_model = ?, chunk_count = ?, embedded_at = ?
		WHERE id = ?`,
		status, nullString(provider), nullString(model), chunkCount, embeddedAt, itemID,
	)
	if err != nil {
		return Internal(err, "set embedding status")
	}
	return nil
}

// ItemsNeedingEmbedding returns up to limit items with status none or error,
// used by the startup backfill worker.
func (s *Store) ItemsNeedingEmbedding(limit int) ([]*ContextItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+contextItemColumns+` FROM context_items WHERE embedding_status IN ('none', 'error') ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, Internal(err, "query items needing embedding")
	}
	defer rows.Close()

	var out []*ContextItem
	for rows.Next() {
		item, err := scanContextItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ResetAllEmbeddings marks every item none, used after a vector dimension
// change drops and recreates the vector table.
func (s *Store) ResetAllEmbeddings() error {
	_, err := s.db.Exec(`UPDATE context_items SET embedding_status = 'none', embedding_provider = NULL, embedding_model = NULL, chunk_count = 0, embedded_at = NULL`)
	if err != nil {
		return Internal(err, "reset embeddings")
	}
	return nil
}

// TagAction is the action applied by the Tag service.
type TagAction string

const (
	TagAdd    TagAction = "add"
	TagRemove TagAction = "remove"
)

// TagItems applies action to the tag list of every item in sessionID whose
// key is in keys, or matches keyPattern (glob with '*'). Returns the count
// of items affected.
func (s *Store) TagItems(sessionID string, keys []string, keyPattern string, tags []string, action TagAction) (int, error) {
	if len(keys) == 0 && keyPattern == "" {
		return 0, Validation("either keys or key_pattern is required")
	}

	items, err := s.ListContextItems(sessionID, ContextItemListFilter{Limit: 10000})
	if err != nil {
		return 0, err
	}

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	affected := 0
	err = s.WithTx(func(tx *sql.Tx) error {
		for _, item := range items {
			matched := keySet[item.Key]
			if !matched && keyPattern != "" {
				matched = globMatch(keyPattern, item.Key)
			}
			if !matched {
				continue
			}
			newTags := applyTagAction(item.Tags, tags, action)
			tagsJSON, err := json.Marshal(newTags)
			if err != nil {
				return Internal(err, "marshal tags")
			}
			if _, err := tx.Exec(`UPDATE context_items SET tags = ?, updated_at = ? WHERE id = ?`,
				string(tagsJSON), nowMS(), item.ID); err != nil {
				return Internal(err, "update tags")
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func applyTagAction(existing, tags []string, action TagAction) []string {
	set := make(map[string]bool, len(existing))
	for _, t := range existing {
		set[t] = true
	}
	switch action {
	case TagRemove:
		for _, t := range tags {
			delete(set, t)
		}
	default:
		for _, t := range tags {
			set[t] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// globMatch reports whether pattern (supporting '*' wildcards) matches s.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(s, last)
}
