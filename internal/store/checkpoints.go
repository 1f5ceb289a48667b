package store

import (
	"database/sql"
	"encoding/json"
)

// CheckpointFilter narrows which ContextItems a Create/Split call captures.
type CheckpointFilter struct {
	IncludeTags       []string
	IncludeKeys       []string // glob
	IncludeCategories []ItemCategory
	ExcludeTags       []string
}

func (f CheckpointFilter) empty() bool {
	return len(f.IncludeTags) == 0 && len(f.IncludeKeys) == 0 && len(f.IncludeCategories) == 0 && len(f.ExcludeTags) == 0
}

func (f CheckpointFilter) matches(item *ContextItem) bool {
	if len(f.IncludeCategories) > 0 {
		ok := false
		for _, c := range f.IncludeCategories {
			if item.Category == c {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.IncludeTags) > 0 {
		if !hasAnyLabel(item.Tags, f.IncludeTags) {
			return false
		}
	}
	if len(f.IncludeKeys) > 0 {
		matched := false
		for _, pat := range f.IncludeKeys {
			if globMatch(pat, item.Key) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(f.ExcludeTags) > 0 && hasAnyLabel(item.Tags, f.ExcludeTags) {
		return false
	}
	return true
}

// CreateCheckpoint snapshots the ContextItems of sessionID matching filter
// into a new, immutable-identity Checkpoint.
func (s *Store) CreateCheckpoint(sessionID, name, description string, gitBranch, gitStatus string, filter CheckpointFilter) (*Checkpoint, error) {
	if name == "" {
		return nil, Validation("name is required")
	}

	items, err := s.ListContextItems(sessionID, ContextItemListFilter{Limit: 10000})
	if err != nil {
		return nil, err
	}

	var selected []*ContextItem
	for _, item := range items {
		if filter.empty() || filter.matches(item) {
			selected = append(selected, item)
		}
	}

	cp := &Checkpoint{
		ID:          newID(),
		SessionID:   sessionID,
		Name:        name,
		Description: description,
		GitBranch:   gitBranch,
		GitStatus:   gitStatus,
		CreatedAt:   nowMS(),
	}

	err = s.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO checkpoints (id, session_id, name, description, git_status, git_branch, item_count, total_size, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
			cp.ID, cp.SessionID, cp.Name, nullString(cp.Description), nullString(cp.GitStatus), nullString(cp.GitBranch), cp.CreatedAt,
		)
		if err != nil {
			return Internal(err, "insert checkpoint")
		}
		if err := insertCheckpointItems(tx, cp.ID, selected); err != nil {
			return err
		}
		return recomputeCheckpointTotals(tx, cp.ID, cp)
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

func insertCheckpointItems(tx *sql.Tx, checkpointID string, items []*ContextItem) error {
	for i, item := range items {
		tagsJSON, err := json.Marshal(item.Tags)
		if err != nil {
			return Internal(err, "marshal tags")
		}
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO checkpoint_items
				(checkpoint_id, context_item_id, group_name, group_order, key, value, category, priority, channel, tags, size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			checkpointID, item.ID, nullString(""), i, item.Key, item.Value, item.Category, item.Priority, item.Channel,
			string(tagsJSON), item.Size,
		)
		if err != nil {
			return Internal(err, "insert checkpoint item")
		}
	}
	return nil
}

// recomputeCheckpointTotals refreshes item_count/total_size on checkpointID
// from the live checkpoint_items rows, per the invariant that these fields
// always reflect current membership. If out is non-nil its fields are
// updated in place.
func recomputeCheckpointTotals(tx *sql.Tx, checkpointID string, out *Checkpoint) error {
	var count, total int
	if err := tx.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM checkpoint_items WHERE checkpoint_id = ?`, checkpointID).Scan(&count, &total); err != nil {
		return Internal(err, "recompute checkpoint totals")
	}
	if _, err := tx.Exec(`UPDATE checkpoints SET item_count = ?, total_size = ? WHERE id = ?`, count, total, checkpointID); err != nil {
		return Internal(err, "update checkpoint totals")
	}
	if out != nil {
		out.ItemCount = count
		out.TotalSize = total
	}
	return nil
}

func scanCheckpoint(row interface{ Scan(dest ...interface{}) error }) (*Checkpoint, error) {
	var cp Checkpoint
	var desc, gitStatus, gitBranch sql.NullString
	err := row.Scan(&cp.ID, &cp.SessionID, &cp.Name, &desc, &gitStatus, &gitBranch, &cp.ItemCount, &cp.TotalSize, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("checkpoint not found")
	}
	if err != nil {
		return nil, Internal(err, "scan checkpoint")
	}
	cp.Description = desc.String
	cp.GitStatus = gitStatus.String
	cp.GitBranch = gitBranch.String
	return &cp, nil
}

const checkpointColumns = `id, session_id, name, description, git_status, git_branch, item_count, total_size, created_at`

// GetCheckpoint fetches a checkpoint by id.
func (s *Store) GetCheckpoint(id string) (*Checkpoint, error) {
	return scanCheckpoint(s.db.QueryRow(`SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?`, id))
}

// CheckpointSummary is the lightweight row shape returned by ListCheckpoints.
type CheckpointSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SessionName string `json:"session_name"`
	ProjectPath string `json:"project_path"`
	ItemCount   int    `json:"item_count"`
	CreatedAt   int64  `json:"created_at"`
}

// ListCheckpoints returns lightweight summaries for sessionID, plus the
// total number of matches (before any limit).
func (s *Store) ListCheckpoints(sessionID string, limit int) ([]CheckpointSummary, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM checkpoints WHERE session_id = ?`, sessionID).Scan(&total); err != nil {
		return nil, 0, Internal(err, "count checkpoints")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT c.id, c.name, s.name, s.project_path, c.item_count, c.created_at
		FROM checkpoints c JOIN sessions s ON s.id = c.session_id
		WHERE c.session_id = ? ORDER BY c.created_at DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, 0, Internal(err, "list checkpoints")
	}
	defer rows.Close()

	var out []CheckpointSummary
	for rows.Next() {
		var cs CheckpointSummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.SessionName, &cs.ProjectPath, &cs.ItemCount, &cs.CreatedAt); err != nil {
			return nil, 0, Internal(err, "scan checkpoint summary")
		}
		out = append(out, cs)
	}
	return out, total, rows.Err()
}

// CheckpointItemRecord is a captured item as stored in a checkpoint.
type CheckpointItemRecord struct {
	ContextItemID string       `json:"context_item_id"`
	Key           string       `json:"key"`
	Value         string       `json:"value"`
	Category      ItemCategory `json:"category"`
	Priority      ItemPriority `json:"priority"`
	Channel       string       `json:"channel"`
	Tags          []string     `json:"tags"`
	Size          int          `json:"size"`
}

// CheckpointItems returns the captured item rows of a checkpoint in
// capture order (group_order).
func (s *Store) CheckpointItems(checkpointID string) ([]CheckpointItemRecord, error) {
	rows, err := s.db.Query(`
		SELECT context_item_id, key, value, category, priority, channel, tags, size
		FROM checkpoint_items WHERE checkpoint_id = ? ORDER BY group_order`, checkpointID)
	if err != nil {
		return nil, Internal(err, "list checkpoint items")
	}
	defer rows.Close()

	var out []CheckpointItemRecord
	for rows.Next() {
		var r CheckpointItemRecord
		var tagsJSON string
		if err := rows.Scan(&r.ContextItemID, &r.Key, &r.Value, &r.Category, &r.Priority, &r.Channel, &tagsJSON, &r.Size); err != nil {
			return nil, Internal(err, "scan checkpoint item")
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, Internal(err, "unmarshal checkpoint item tags")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var priorityRank = map[ItemPriority]int{PriorityHigh: 2, PriorityNormal: 1, PriorityLow: 0}

// CheckpointPreview returns up to n of the highest-priority captured items.
func (s *Store) CheckpointPreview(checkpointID string, n int) ([]CheckpointItemRecord, error) {
	items, err := s.CheckpointItems(checkpointID)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if priorityRank[items[j].Priority] > priorityRank[items[i].Priority] {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	if n <= 0 {
		n = 5
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// DeleteCheckpoint removes a checkpoint after name verification.
func (s *Store) DeleteCheckpoint(id, currentName string) error {
	cp, err := s.GetCheckpoint(id)
	if err != nil {
		return err
	}
	if err := verifyName(cp.Name, currentName); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM checkpoints WHERE id = ?`, id); err != nil {
		return Internal(err, "delete checkpoint")
	}
	return nil
}

// AddCheckpointItems adds ContextItems (captured at their current values) to
// an existing checkpoint's membership and recomputes its totals.
func (s *Store) AddCheckpointItems(checkpointID string, itemIDs []string) (*Checkpoint, error) {
	var cp *Checkpoint
	err := s.WithTx(func(tx *sql.Tx) error {
		var err error
		cp, err = scanCheckpoint(tx.QueryRow(`SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?`, checkpointID))
		if err != nil {
			return err
		}
		for _, id := range itemIDs {
			item, err := s.GetContextItemByID(id)
			if err != nil {
				return err
			}
			if err := insertCheckpointItems(tx, checkpointID, []*ContextItem{item}); err != nil {
				return err
			}
		}
		return recomputeCheckpointTotals(tx, checkpointID, cp)
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// RemoveCheckpointItems removes membership rows and recomputes totals.
func (s *Store) RemoveCheckpointItems(checkpointID string, itemIDs []string) (*Checkpoint, error) {
	var cp *Checkpoint
	err := s.WithTx(func(tx *sql.Tx) error {
		var err error
		cp, err = scanCheckpoint(tx.QueryRow(`SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?`, checkpointID))
		if err != nil {
			return err
		}
		for _, id := range itemIDs {
			if _, err := tx.Exec(`DELETE FROM checkpoint_items WHERE checkpoint_id = ? AND context_item_id = ?`, checkpointID, id); err != nil {
				return Internal(err, "remove checkpoint item")
			}
		}
		return recomputeCheckpointTotals(tx, checkpointID, cp)
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// RestoreCheckpoint copies items from checkpointID into targetSessionID,
// optionally narrowed to restoreTags/restoreCategories. Collision policy:
// an item already present in the target session under the same key is
// overwritten, per the pinned open question.
func (s *Store) RestoreCheckpoint(checkpointID, currentName, targetSessionID string, restoreTags []string, restoreCategories []ItemCategory) ([]*ContextItem, error) {
	cp, err := s.GetCheckpoint(checkpointID)
	if err != nil {
		return nil, err
	}
	if err := verifyName(cp.Name, currentName); err != nil {
		return nil, err
	}

	records, err := s.CheckpointItems(checkpointID)
	if err != nil {
		return nil, err
	}

	var restored []*ContextItem
	for _, r := range records {
		if len(restoreCategories) > 0 {
			match := false
			for _, c := range restoreCategories {
				if r.Category == c {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if len(restoreTags) > 0 && !hasAnyLabel(r.Tags, restoreTags) {
			continue
		}
		item, err := s.SaveContextItem(targetSessionID, r.Key, r.Value, r.Category, r.Priority, r.Channel, r.Tags)
		if err != nil {
			return nil, err
		}
		restored = append(restored, item)
	}
	return restored, nil
}

// CheckpointSplitSpec is one target checkpoint of a Split call.
type CheckpointSplitSpec struct {
	Name              string
	Description       string
	IncludeTags       []string
	IncludeCategories []ItemCategory
}

// SplitWarning flags a split that produced an unexpectedly-shaped result.
type SplitWarning struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// SplitCheckpoint creates len(specs) new checkpoints from the membership of
// sourceID, each filtered by its own include_tags/include_categories. Each
// spec must set at least one of those two fields.
func (s *Store) SplitCheckpoint(sourceID, currentName string, specs []CheckpointSplitSpec) ([]*Checkpoint, []SplitWarning, error) {
	source, err := s.GetCheckpoint(sourceID)
	if err != nil {
		return nil, nil, err
	}
	if err := verifyName(source.Name, currentName); err != nil {
		return nil, nil, err
	}
	for _, spec := range specs {
		if len(spec.IncludeTags) == 0 && len(spec.IncludeCategories) == 0 {
			return nil, nil, Validation("split %q must set include_tags or include_categories", spec.Name)
		}
	}

	sourceRecords, err := s.CheckpointItems(sourceID)
	if err != nil {
		return nil, nil, err
	}

	var results []*Checkpoint
	var warnings []SplitWarning
	err = s.WithTx(func(tx *sql.Tx) error {
		for _, spec := range specs {
			filter := CheckpointFilter{IncludeTags: spec.IncludeTags, IncludeCategories: spec.IncludeCategories}
			var matched []*ContextItem
			for _, r := range sourceRecords {
				fake := &ContextItem{ID: r.ContextItemID, Key: r.Key, Value: r.Value, Category: r.Category, Priority: r.Priority, Channel: r.Channel, Tags: r.Tags, Size: r.Size}
				if filter.matches(fake) {
					matched = append(matched, fake)
				}
			}

			cp := &Checkpoint{
				ID:          newID(),
				SessionID:   source.SessionID,
				Name:        spec.Name,
				Description: spec.Description,
				GitBranch:   source.GitBranch,
				GitStatus:   source.GitStatus,
				CreatedAt:   nowMS(),
			}
			if _, err := tx.Exec(`
				INSERT INTO checkpoints (id, session_id, name, description, git_status, git_branch, item_count, total_size, created_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
				cp.ID, cp.SessionID, cp.Name, nullString(cp.Description), nullString(cp.GitStatus), nullString(cp.GitBranch), cp.CreatedAt,
			); err != nil {
				return Internal(err, "insert split checkpoint")
			}
			if err := insertCheckpointItems(tx, cp.ID, matched); err != nil {
				return err
			}
			if err := recomputeCheckpointTotals(tx, cp.ID, cp); err != nil {
				return err
			}

			if len(matched) == 0 {
				warnings = append(warnings, SplitWarning{Name: spec.Name, Message: "split produced 0 items"})
			} else if len(matched) == len(sourceRecords) {
				warnings = append(warnings, SplitWarning{Name: spec.Name, Message: "split produced the full source set"})
			}
			results = append(results, cp)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return results, warnings, nil
}
