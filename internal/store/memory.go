package store

import "database/sql"

// SaveMemory inserts or overwrites a project-scoped memory entry.
func (s *Store) SaveMemory(projectPath, key, value string, category MemoryCategory) (*Memory, error) {
	if key == "" {
		return nil, Validation("key is required")
	}
	if category == "" {
		category = MemoryNote
	}
	now := nowMS()

	var createdAt int64
	err := s.db.QueryRow(`SELECT created_at FROM memory WHERE project_path = ? AND key = ?`, projectPath, key).Scan(&createdAt)
	switch {
	case err == sql.ErrNoRows:
		createdAt = now
		_, err = s.db.Exec(`
			INSERT INTO memory (project_path, key, value, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`, projectPath, key, value, category, now, now)
		if err != nil {
			return nil, Internal(err, "insert memory")
		}
	case err != nil:
		return nil, Internal(err, "check existing memory")
	default:
		_, err = s.db.Exec(`UPDATE memory SET value = ?, category = ?, updated_at = ? WHERE project_path = ? AND key = ?`,
			value, category, now, projectPath, key)
		if err != nil {
			return nil, Internal(err, "update memory")
		}
	}

	return &Memory{ProjectPath: projectPath, Key: key, Value: value, Category: category, CreatedAt: createdAt, UpdatedAt: now}, nil
}

// GetMemory fetches a single memory entry.
func (s *Store) GetMemory(projectPath, key string) (*Memory, error) {
	var m Memory
	m.ProjectPath = projectPath
	m.Key = key
	err := s.db.QueryRow(`SELECT value, category, created_at, updated_at FROM memory WHERE project_path = ? AND key = ?`,
		projectPath, key).Scan(&m.Value, &m.Category, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("memory not found: %s", key)
	}
	if err != nil {
		return nil, Internal(err, "get memory")
	}
	return &m, nil
}

// ListMemory lists entries for a project, optionally filtered by category.
func (s *Store) ListMemory(projectPath string, category MemoryCategory) ([]*Memory, error) {
	query := `SELECT project_path, key, value, category, created_at, updated_at FROM memory WHERE project_path = ?`
	args := []interface{}{projectPath}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY key`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal(err, "list memory")
	}
	defer rows.Close()

	var out []*Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ProjectPath, &m.Key, &m.Value, &m.Category, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, Internal(err, "scan memory")
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// DeleteMemory removes one memory entry.
func (s *Store) DeleteMemory(projectPath, key string) error {
	res, err := s.db.Exec(`DELETE FROM memory WHERE project_path = ? AND key = ?`, projectPath, key)
	if err != nil {
		return Internal(err, "delete memory")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("memory not found: %s", key)
	}
	return nil
}
