package store

import "database/sql"

// CreatePlan inserts a new plan, allocating its short_id from the
// project's plan counter.
func (s *Store) CreatePlan(projectPath, title, content, successCriteria string) (*Plan, error) {
	if title == "" {
		return nil, Validation("title is required")
	}

	var plan *Plan
	err := s.WithTx(func(tx *sql.Tx) error {
		shortID, err := allocateShortID(tx, projectPath, "plan")
		if err != nil {
			return err
		}
		now := nowMS()
		plan = &Plan{
			ID:              newID(),
			ShortID:         shortID,
			ProjectPath:     projectPath,
			Title:           title,
			Content:         content,
			SuccessCriteria: successCriteria,
			Status:          PlanDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		_, err = tx.Exec(`
			INSERT INTO plans (id, short_id, project_path, title, content, success_criteria, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.ShortID, plan.ProjectPath, plan.Title, plan.Content,
			nullString(plan.SuccessCriteria), plan.Status, plan.CreatedAt, plan.UpdatedAt,
		)
		if err != nil {
			return Internal(err, "insert plan")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func scanPlan(row interface{ Scan(dest ...interface{}) error }) (*Plan, error) {
	var p Plan
	var criteria sql.NullString
	err := row.Scan(&p.ID, &p.ShortID, &p.ProjectPath, &p.Title, &p.Content, &criteria, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("plan not found")
	}
	if err != nil {
		return nil, Internal(err, "scan plan")
	}
	p.SuccessCriteria = criteria.String
	return &p, nil
}

const planColumns = `id, short_id, project_path, title, content, success_criteria, status, created_at, updated_at`

// GetPlan fetches a plan by id.
func (s *Store) GetPlan(id string) (*Plan, error) {
	return scanPlan(s.db.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
}

// ListPlans returns plans for a project, optionally filtered by status.
func (s *Store) ListPlans(projectPath string, status PlanStatus) ([]*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE project_path = ?`
	args := []interface{}{projectPath}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal(err, "list plans")
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlan applies a partial update. When newProjectPath differs from the
// plan's current project, linked Issues are cascaded to the new project;
// per the decided open question, their short_id is left unchanged (it
// cannot collide, since short_id uniqueness is scoped per project path).
func (s *Store) UpdatePlan(id string, title, content, successCriteria *string, status *PlanStatus, newProjectPath string) (*Plan, error) {
	var plan *Plan
	err := s.WithTx(func(tx *sql.Tx) error {
		var err error
		plan, err = scanPlan(tx.QueryRow(`SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if title != nil {
			plan.Title = *title
		}
		if content != nil {
			plan.Content = *content
		}
		if successCriteria != nil {
			plan.SuccessCriteria = *successCriteria
		}
		if status != nil {
			plan.Status = *status
		}
		movingProjects := newProjectPath != "" && newProjectPath != plan.ProjectPath
		if movingProjects {
			plan.ProjectPath = newProjectPath
		}
		plan.UpdatedAt = nowMS()

		_, err = tx.Exec(`
			UPDATE plans SET title = ?, content = ?, success_criteria = ?, status = ?, project_path = ?, updated_at = ?
			WHERE id = ?`,
			plan.Title, plan.Content, nullString(plan.SuccessCriteria), plan.Status, plan.ProjectPath, plan.UpdatedAt, id,
		)
		if err != nil {
			return Internal(err, "update plan")
		}

		if movingProjects {
			if _, err := tx.Exec(`UPDATE issues SET project_path = ?, updated_at = ? WHERE plan_id = ?`,
				newProjectPath, nowMS(), id); err != nil {
				return Internal(err, "cascade plan move to issues")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}
