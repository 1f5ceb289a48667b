package store

import (
	"database/sql"
	"strings"
)

// CreateProject registers a new project at path. issuePrefix, if empty,
// defaults to the first 4 characters of name, upper-cased.
func (s *Store) CreateProject(projectPath, name, description, issuePrefix string) (*Project, error) {
	if projectPath == "" {
		return nil, Validation("project_path is required")
	}
	if name == "" {
		return nil, Validation("name is required")
	}
	if issuePrefix == "" {
		issuePrefix = defaultIssuePrefix(name)
	}
	if len(issuePrefix) > 8 {
		return nil, Validation("issue_prefix must be at most 8 characters")
	}

	now := nowMS()
	p := &Project{
		ProjectPath: projectPath,
		Name:        name,
		Description: description,
		IssuePrefix: issuePrefix,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO projects (project_path, name, description, issue_prefix, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ProjectPath, p.Name, nullString(p.Description), p.IssuePrefix, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return Conflict("project already exists: %s", projectPath)
			}
			return Internal(err, "insert project")
		}
		_, err = tx.Exec(`INSERT INTO project_counters (project_path) VALUES (?)`, projectPath)
		if err != nil {
			return Internal(err, "insert project counters")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func defaultIssuePrefix(name string) string {
	upper := []rune{}
	for _, r := range name {
		if len(upper) >= 4 {
			break
		}
		upper = append(upper, r)
	}
	s := string(upper)
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// GetProject fetches a project by its canonical path.
func (s *Store) GetProject(projectPath string) (*Project, error) {
	var p Project
	var desc sql.NullString
	err := s.db.QueryRow(`
		SELECT project_path, name, description, issue_prefix, created_at, updated_at
		FROM projects WHERE project_path = ?`, projectPath,
	).Scan(&p.ProjectPath, &p.Name, &desc, &p.IssuePrefix, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("project not found: %s", projectPath)
	}
	if err != nil {
		return nil, Internal(err, "get project")
	}
	p.Description = desc.String
	return &p, nil
}

// ListProjects returns all known projects ordered by name.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.db.Query(`
		SELECT project_path, name, description, issue_prefix, created_at, updated_at
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, Internal(err, "list projects")
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		var p Project
		var desc sql.NullString
		if err := rows.Scan(&p.ProjectPath, &p.Name, &desc, &p.IssuePrefix, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, Internal(err, "scan project")
		}
		p.Description = desc.String
		out = append(out, &p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project. Its Issues, Plans, and Memory cascade
// (enforced by the schema's ON DELETE CASCADE); Sessions are unlinked, not
// deleted, by clearing their project_path association rows only.
func (s *Store) DeleteProject(projectPath string) error {
	return s.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM projects WHERE project_path = ?`, projectPath)
		if err != nil {
			return Internal(err, "delete project")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NotFound("project not found: %s", projectPath)
		}
		if _, err := tx.Exec(`DELETE FROM session_projects WHERE project_path = ?`, projectPath); err != nil {
			return Internal(err, "unlink sessions from project")
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
