package store

import (
	"database/sql"
	"strings"
)

// CreateSession starts a new session bound to projectPath as its primary
// project. channel must already be normalized by the caller (see
// internal/agentbind for channel derivation).
func (s *Store) CreateSession(name, description, branch, channel, projectPath string) (*Session, error) {
	if name == "" {
		return nil, Validation("name is required")
	}
	if channel == "" {
		channel = "general"
	}

	now := nowMS()
	sess := &Session{
		ID:          newID(),
		Name:        name,
		Description: description,
		Branch:      branch,
		Channel:     channel,
		ProjectPath: projectPath,
		Status:      SessionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.WithTx(func(tx *sql.Tx) error {
		var exists string
		if err := tx.QueryRow(`SELECT project_path FROM projects WHERE project_path = ?`, projectPath).Scan(&exists); err == sql.ErrNoRows {
			return NotFound("project not found: %s", projectPath)
		} else if err != nil {
			return Internal(err, "check project")
		}

		_, err := tx.Exec(`
			INSERT INTO sessions (id, name, description, branch, channel, project_path, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.Name, nullString(sess.Description), nullString(sess.Branch),
			sess.Channel, sess.ProjectPath, sess.Status, sess.CreatedAt, sess.UpdatedAt,
		)
		if err != nil {
			return Internal(err, "insert session")
		}
		_, err = tx.Exec(`
			INSERT INTO session_projects (session_id, project_path, is_primary) VALUES (?, ?, 1)`,
			sess.ID, projectPath,
		)
		if err != nil {
			return Internal(err, "insert session_projects")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	return s.getSessionTx(s.db, id)
}

type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (s *Store) getSessionTx(q queryer, id string) (*Session, error) {
	var sess Session
	var desc, branch sql.NullString
	var ended sql.NullInt64
	err := q.QueryRow(`
		SELECT id, name, description, branch, channel, project_path, status, created_at, updated_at, ended_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Name, &desc, &branch, &sess.Channel, &sess.ProjectPath, &sess.Status,
		&sess.CreatedAt, &sess.UpdatedAt, &ended)
	if err == sql.ErrNoRows {
		return nil, NotFound("session not found: %s", id)
	}
	if err != nil {
		return nil, Internal(err, "get session")
	}
	sess.Description = desc.String
	sess.Branch = branch.String
	sess.EndedAt = int64Ptr(ended)
	return &sess, nil
}

// SessionProjects lists the projects attached to a session.
func (s *Store) SessionProjects(sessionID string) ([]SessionProject, error) {
	rows, err := s.db.Query(`
		SELECT session_id, project_path, is_primary FROM session_projects WHERE session_id = ? ORDER BY is_primary DESC, project_path`,
		sessionID)
	if err != nil {
		return nil, Internal(err, "list session projects")
	}
	defer rows.Close()

	var out []SessionProject
	for rows.Next() {
		var sp SessionProject
		var primary int
		if err := rows.Scan(&sp.SessionID, &sp.ProjectPath, &primary); err != nil {
			return nil, Internal(err, "scan session project")
		}
		sp.IsPrimary = primary != 0
		out = append(out, sp)
	}
	return out, rows.Err()
}

// RenameSession renames a session after verifying the caller's currentName
// matches, per the destructive-operation verification pattern.
func (s *Store) RenameSession(id, currentName, newName string) (*Session, error) {
	if newName == "" {
		return nil, Validation("new name is required")
	}
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if err := verifyName(sess.Name, currentName); err != nil {
		return nil, err
	}
	now := nowMS()
	if _, err := s.db.Exec(`UPDATE sessions SET name = ?, updated_at = ? WHERE id = ?`, newName, now, id); err != nil {
		return nil, Internal(err, "rename session")
	}
	sess.Name = newName
	sess.UpdatedAt = now
	return sess, nil
}

// PauseSession transitions a session to paused.
func (s *Store) PauseSession(id string) error {
	return s.setSessionStatus(id, SessionPaused)
}

// ResumeSession transitions a session back to active after name verification.
func (s *Store) ResumeSession(id, currentName string) (*Session, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if err := verifyName(sess.Name, currentName); err != nil {
		return nil, err
	}
	if err := s.setSessionStatus(id, SessionActive); err != nil {
		return nil, err
	}
	sess.Status = SessionActive
	return sess, nil
}

// EndSession transitions a session to completed and stamps ended_at.
func (s *Store) EndSession(id string) error {
	now := nowMS()
	res, err := s.db.Exec(`UPDATE sessions SET status = ?, ended_at = ?, updated_at = ? WHERE id = ?`,
		SessionCompleted, now, now, id)
	if err != nil {
		return Internal(err, "end session")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("session not found: %s", id)
	}
	return nil
}

func (s *Store) setSessionStatus(id string, status SessionStatus) error {
	now := nowMS()
	res, err := s.db.Exec(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return Internal(err, "update session status")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("session not found: %s", id)
	}
	return nil
}

// DeleteSession removes a session. Rejected while active.
func (s *Store) DeleteSession(id string) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	if sess.Status == SessionActive {
		return Conflict("cannot delete an active session: pause or end it first")
	}
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return Internal(err, "delete session")
	}
	return nil
}

// SessionListFilter narrows ListSessions.
type SessionListFilter struct {
	Search      string
	ProjectPath string
	Status      SessionStatus
	Limit       int
}

// ListSessions returns sessions matching filter, most recently updated first.
func (s *Store) ListSessions(f SessionListFilter) ([]*Session, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT id, name, description, branch, channel, project_path, status, created_at, updated_at, ended_at FROM sessions WHERE 1=1`)
	var args []interface{}
	if f.ProjectPath != "" {
		q.WriteString(` AND project_path = ?`)
		args = append(args, f.ProjectPath)
	}
	if f.Status != "" {
		q.WriteString(` AND status = ?`)
		args = append(args, f.Status)
	}
	if f.Search != "" {
		q.WriteString(` AND (name LIKE ? OR description LIKE ?)`)
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	q.WriteString(` ORDER BY updated_at DESC`)
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, Internal(err, "list sessions")
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		var desc, branch sql.NullString
		var ended sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.Name, &desc, &branch, &sess.Channel, &sess.ProjectPath,
			&sess.Status, &sess.CreatedAt, &sess.UpdatedAt, &ended); err != nil {
			return nil, Internal(err, "scan session")
		}
		sess.Description = desc.String
		sess.Branch = branch.String
		sess.EndedAt = int64Ptr(ended)
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// AddSessionPath attaches an additional project path to a session.
func (s *Store) AddSessionPath(sessionID, projectPath string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO session_projects (session_id, project_path, is_primary) VALUES (?, ?, 0)`,
		sessionID, projectPath)
	if err != nil {
		return Internal(err, "add session path")
	}
	return nil
}

// RemoveSessionPath detaches a project path from a session. Rejected when
// it is the only remaining path. If the removed path was primary, another
// remaining path is promoted to primary so the "exactly one is_primary"
// invariant (spec.md §8) keeps holding.
func (s *Store) RemoveSessionPath(sessionID, projectPath string) error {
	return s.WithTx(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM session_projects WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
			return Internal(err, "count session paths")
		}
		if count <= 1 {
			return Conflict("cannot remove the only project path on a session")
		}
		var primary int
		if err := tx.QueryRow(`SELECT is_primary FROM session_projects WHERE session_id = ? AND project_path = ?`, sessionID, projectPath).Scan(&primary); err == sql.ErrNoRows {
			return NotFound("session path not found: %s", projectPath)
		} else if err != nil {
			return Internal(err, "load session path")
		}
		wasPrimary := primary != 0

		res, err := tx.Exec(`DELETE FROM session_projects WHERE session_id = ? AND project_path = ?`, sessionID, projectPath)
		if err != nil {
			return Internal(err, "remove session path")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NotFound("session path not found: %s", projectPath)
		}

		if wasPrimary {
			if _, err := tx.Exec(`
				UPDATE session_projects SET is_primary = 1
				WHERE session_id = ? AND project_path = (
					SELECT project_path FROM session_projects WHERE session_id = ? ORDER BY project_path LIMIT 1
				)`, sessionID, sessionID); err != nil {
				return Internal(err, "promote session path to primary")
			}
		}
		return nil
	})
}

// Switch pauses the current session (if any), resumes target, and returns
// the resumed session. Cannot target a completed session.
func (s *Store) Switch(currentID, targetID string) (*Session, error) {
	target, err := s.GetSession(targetID)
	if err != nil {
		return nil, err
	}
	if target.Status == SessionCompleted {
		return nil, Validation("cannot switch to a completed session")
	}
	if currentID != "" && currentID != targetID {
		if cur, err := s.GetSession(currentID); err == nil && cur.Status == SessionActive {
			if err := s.PauseSession(currentID); err != nil {
				return nil, err
			}
		}
	}
	if err := s.setSessionStatus(targetID, SessionActive); err != nil {
		return nil, err
	}
	target.Status = SessionActive
	return target, nil
}

// verifyName implements the destructive-operation verification pattern:
// the caller must pass the object's current name/title, or the operation
// is rejected without mutating state.
func verifyName(actual, supplied string) error {
	if actual != supplied {
		return Validation("name mismatch: expected %q", actual)
	}
	return nil
}
