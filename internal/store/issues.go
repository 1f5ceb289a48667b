package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// CreateIssue inserts a new issue, allocating its short_id from the
// project's counter inside the same transaction.
func (s *Store) CreateIssue(projectPath, title, description, details string, priority int, issueType IssueType, parentID, planID, createdInSession string, labels []string) (*Issue, error) {
	if title == "" {
		return nil, Validation("title is required")
	}
	if priority < 0 || priority > 4 {
		return nil, Validation("priority must be between 0 and 4")
	}
	if issueType == "" {
		issueType = IssueTask
	}
	if labels == nil {
		labels = []string{}
	}

	var issue *Issue
	err := s.WithTx(func(tx *sql.Tx) error {
		shortID, err := allocateShortID(tx, projectPath, "issue")
		if err != nil {
			return err
		}
		issue, err = insertIssue(tx, projectPath, shortID, title, description, details, priority, issueType, parentID, planID, createdInSession, labels)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func insertIssue(tx *sql.Tx, projectPath, shortID, title, description, details string, priority int, issueType IssueType, parentID, planID, createdInSession string, labels []string) (*Issue, error) {
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, Internal(err, "marshal labels")
	}
	now := nowMS()
	issue := &Issue{
		ID:               newID(),
		ShortID:          shortID,
		ProjectPath:      projectPath,
		Title:            title,
		Description:      description,
		Details:          details,
		Status:           IssueOpen,
		Priority:         priority,
		IssueType:        issueType,
		ParentID:         parentID,
		PlanID:           planID,
		Labels:           labels,
		CreatedInSession: createdInSession,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err = tx.Exec(`
		INSERT INTO issues (id, short_id, project_path, title, description, details, status, priority,
			issue_type, parent_id, plan_id, labels, created_in_session, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.ShortID, issue.ProjectPath, issue.Title, nullString(issue.Description),
		nullString(issue.Details), issue.Status, issue.Priority, issue.IssueType,
		nullString(issue.ParentID), nullString(issue.PlanID), string(labelsJSON),
		nullString(issue.CreatedInSession), issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return nil, Internal(err, "insert issue")
	}
	return issue, nil
}

// allocateShortID bumps the per-project counter (issue or plan) inside tx
// and formats the result as "${prefix}-${n}".
func allocateShortID(tx *sql.Tx, projectPath, kind string) (string, error) {
	var prefix string
	if err := tx.QueryRow(`SELECT issue_prefix FROM projects WHERE project_path = ?`, projectPath).Scan(&prefix); err == sql.ErrNoRows {
		return "", NotFound("project not found: %s", projectPath)
	} else if err != nil {
		return "", Internal(err, "load project prefix")
	}

	column := "issue_counter"
	if kind == "plan" {
		column = "plan_counter"
	}

	if _, err := tx.Exec(`UPDATE project_counters SET `+column+` = `+column+` + 1 WHERE project_path = ?`, projectPath); err != nil {
		return "", Internal(err, "bump counter")
	}
	var n int64
	if err := tx.QueryRow(`SELECT `+column+` FROM project_counters WHERE project_path = ?`, projectPath).Scan(&n); err != nil {
		return "", Internal(err, "read counter")
	}
	return fmt.Sprintf("%s-%d", prefix, n), nil
}

func scanIssue(row interface{ Scan(dest ...interface{}) error }) (*Issue, error) {
	var issue Issue
	var desc, details, parentID, planID, assigned, createdSess, closedSess, closedAgent sql.NullString
	var closedAt sql.NullInt64
	var labelsJSON string
	err := row.Scan(&issue.ID, &issue.ShortID, &issue.ProjectPath, &issue.Title, &desc, &details,
		&issue.Status, &issue.Priority, &issue.IssueType, &parentID, &planID, &labelsJSON,
		&assigned, &createdSess, &closedSess, &closedAgent, &closedAt, &issue.CreatedAt, &issue.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("issue not found")
	}
	if err != nil {
		return nil, Internal(err, "scan issue")
	}
	issue.Description = desc.String
	issue.Details = details.String
	issue.ParentID = parentID.String
	issue.PlanID = planID.String
	issue.AssignedToAgent = assigned.String
	issue.CreatedInSession = createdSess.String
	issue.ClosedInSession = closedSess.String
	issue.ClosedByAgent = closedAgent.String
	issue.ClosedAt = int64Ptr(closedAt)
	if err := json.Unmarshal([]byte(labelsJSON), &issue.Labels); err != nil {
		return nil, Internal(err, "unmarshal labels")
	}
	return &issue, nil
}

const issueColumns = `id, short_id, project_path, title, description, details, status, priority, issue_type, parent_id, plan_id, labels, assigned_to_agent, created_in_session, closed_in_session, closed_by_agent, closed_at, created_at, updated_at`

// GetIssue fetches an issue by id.
func (s *Store) GetIssue(id string) (*Issue, error) {
	row := s.db.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	return scanIssue(row)
}

// GetIssueByShortID fetches an issue by its human-friendly short id within
// a project.
func (s *Store) GetIssueByShortID(projectPath, shortID string) (*Issue, error) {
	row := s.db.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE project_path = ? AND short_id = ?`, projectPath, shortID)
	return scanIssue(row)
}

// IssueListFilter narrows ListIssues per spec.md §4.2.4.
type IssueListFilter struct {
	ProjectPath  string
	AllProjects  bool
	Status       IssueStatus
	Priority     *int
	MinPriority  *int
	MaxPriority  *int
	IssueType    IssueType
	LabelsAll    []string
	LabelsAny    []string
	ParentID     string
	PlanID       string
	HasSubtasks  *bool
	HasDeps      *bool
	SortBy       string // "priority" | "createdAt" | "updatedAt"
	Ascending    bool
	Limit        int
}

// ListIssues returns issues matching f.
func (s *Store) ListIssues(f IssueListFilter) ([]*Issue, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT ` + issueColumns + ` FROM issues WHERE 1=1`)
	var args []interface{}
	if !f.AllProjects && f.ProjectPath != "" {
		q.WriteString(` AND project_path = ?`)
		args = append(args, f.ProjectPath)
	}
	if f.Status != "" {
		q.WriteString(` AND status = ?`)
		args = append(args, f.Status)
	}
	if f.Priority != nil {
		q.WriteString(` AND priority = ?`)
		args = append(args, *f.Priority)
	}
	if f.MinPriority != nil {
		q.WriteString(` AND priority >= ?`)
		args = append(args, *f.MinPriority)
	}
	if f.MaxPriority != nil {
		q.WriteString(` AND priority <= ?`)
		args = append(args, *f.MaxPriority)
	}
	if f.IssueType != "" {
		q.WriteString(` AND issue_type = ?`)
		args = append(args, f.IssueType)
	}
	if f.ParentID != "" {
		q.WriteString(` AND parent_id = ?`)
		args = append(args, f.ParentID)
	}
	if f.PlanID != "" {
		q.WriteString(` AND plan_id = ?`)
		args = append(args, f.PlanID)
	}
	for _, l := range f.LabelsAll {
		q.WriteString(` AND labels LIKE ?`)
		args = append(args, "%\""+l+"\"%")
	}

	order := "created_at"
	switch f.SortBy {
	case "priority":
		order = "priority"
	case "updatedAt":
		order = "updated_at"
	}
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	q.WriteString(fmt.Sprintf(` ORDER BY %s %s`, order, dir))
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	q.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, Internal(err, "list issues")
	}
	defer rows.Close()

	var out []*Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		if len(f.LabelsAny) > 0 && !hasAnyLabel(issue.Labels, f.LabelsAny) {
			continue
		}
		if f.HasSubtasks != nil {
			has, err := s.hasSubtasks(issue.ID)
			if err != nil {
				return nil, err
			}
			if has != *f.HasSubtasks {
				continue
			}
		}
		if f.HasDeps != nil {
			has, err := s.hasDependencies(issue.ID)
			if err != nil {
				return nil, err
			}
			if has != *f.HasDeps {
				continue
			}
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

func hasAnyLabel(labels, want []string) bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

func (s *Store) hasSubtasks(issueID string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM issues WHERE parent_id = ?`, issueID).Scan(&n); err != nil {
		return false, Internal(err, "count subtasks")
	}
	return n > 0, nil
}

func (s *Store) hasDependencies(issueID string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM issue_dependencies WHERE issue_id = ?`, issueID).Scan(&n); err != nil {
		return false, Internal(err, "count dependencies")
	}
	return n > 0, nil
}

// UpdateIssue applies a partial update, requiring currentTitle to match for
// verification.
func (s *Store) UpdateIssue(id, currentTitle string, title, description, details *string, status *IssueStatus, priority *int, issueType *IssueType) (*Issue, error) {
	issue, err := s.GetIssue(id)
	if err != nil {
		return nil, err
	}
	if err := verifyName(issue.Title, currentTitle); err != nil {
		return nil, err
	}
	if title != nil {
		issue.Title = *title
	}
	if description != nil {
		issue.Description = *description
	}
	if details != nil {
		issue.Details = *details
	}
	if status != nil {
		issue.Status = *status
	}
	if priority != nil {
		if *priority < 0 || *priority > 4 {
			return nil, Validation("priority must be between 0 and 4")
		}
		issue.Priority = *priority
	}
	if issueType != nil {
		issue.IssueType = *issueType
	}
	issue.UpdatedAt = nowMS()

	_, err = s.db.Exec(`
		UPDATE issues SET title = ?, description = ?, details = ?, status = ?, priority = ?, issue_type = ?, updated_at = ?
		WHERE id = ?`,
		issue.Title, nullString(issue.Description), nullString(issue.Details), issue.Status,
		issue.Priority, issue.IssueType, issue.UpdatedAt, id,
	)
	if err != nil {
		return nil, Internal(err, "update issue")
	}
	return issue, nil
}

// CompleteIssue transitions an issue to closed, stamps closer metadata,
// cascades unblocking dependents, and auto-completes an exhausted plan —
// all inside one transaction.
func (s *Store) CompleteIssue(id, closedByAgent, closedInSession string) (*Issue, error) {
	var issue *Issue
	err := s.WithTx(func(tx *sql.Tx) error {
		var err error
		issue, err = scanIssue(tx.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
		if err != nil {
			return err
		}
		now := nowMS()
		if _, err := tx.Exec(`
			UPDATE issues SET status = ?, closed_by_agent = ?, closed_in_session = ?, closed_at = ?, updated_at = ?
			WHERE id = ?`, IssueClosed, nullString(closedByAgent), nullString(closedInSession), now, now, id); err != nil {
			return Internal(err, "close issue")
		}
		issue.Status = IssueClosed
		issue.ClosedByAgent = closedByAgent
		issue.ClosedInSession = closedInSession
		issue.ClosedAt = &now
		issue.UpdatedAt = now

		if err := cascadeUnblock(tx, id); err != nil {
			return err
		}
		if issue.PlanID != "" {
			if err := maybeCompletePlan(tx, issue.PlanID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// cascadeUnblock transitions dependents of closedID from blocked to open
// when closedID was their only remaining open 'blocks' blocker.
func cascadeUnblock(tx *sql.Tx, closedID string) error {
	rows, err := tx.Query(`SELECT issue_id FROM issue_dependencies WHERE depends_on_id = ? AND dep_type = ?`, closedID, DepBlocks)
	if err != nil {
		return Internal(err, "find dependents")
	}
	var dependents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Internal(err, "scan dependent")
		}
		dependents = append(dependents, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Internal(err, "iterate dependents")
	}

	for _, depID := range dependents {
		var status IssueStatus
		if err := tx.QueryRow(`SELECT status FROM issues WHERE id = ?`, depID).Scan(&status); err != nil {
			return Internal(err, "load dependent status")
		}
		if status != IssueBlocked {
			continue
		}
		stillBlocked, err := hasOpenBlocker(tx, depID)
		if err != nil {
			return err
		}
		if !stillBlocked {
			if _, err := tx.Exec(`UPDATE issues SET status = ?, updated_at = ? WHERE id = ?`, IssueOpen, nowMS(), depID); err != nil {
				return Internal(err, "unblock dependent")
			}
		}
	}
	return nil
}

func hasOpenBlocker(tx *sql.Tx, issueID string) (bool, error) {
	rows, err := tx.Query(`
		SELECT i.status FROM issue_dependencies d
		JOIN issues i ON i.id = d.depends_on_id
		WHERE d.issue_id = ? AND d.dep_type = ?`, issueID, DepBlocks)
	if err != nil {
		return false, Internal(err, "query blockers")
	}
	defer rows.Close()
	for rows.Next() {
		var status IssueStatus
		if err := rows.Scan(&status); err != nil {
			return false, Internal(err, "scan blocker status")
		}
		if status != IssueClosed {
			return true, nil
		}
	}
	return false, rows.Err()
}

// maybeCompletePlan transitions planID to completed if every Issue linked
// to it (including sub-issues) is closed.
func maybeCompletePlan(tx *sql.Tx, planID string) error {
	var openCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM issues WHERE plan_id = ? AND status != ?`, planID, IssueClosed).Scan(&openCount); err != nil {
		return Internal(err, "count open plan issues")
	}
	if openCount > 0 {
		return nil
	}
	var total int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM issues WHERE plan_id = ?`, planID).Scan(&total); err != nil {
		return Internal(err, "count plan issues")
	}
	if total == 0 {
		return nil
	}
	if _, err := tx.Exec(`UPDATE plans SET status = ?, updated_at = ? WHERE id = ? AND status != ?`,
		PlanCompleted, nowMS(), planID, PlanCompleted); err != nil {
		return Internal(err, "complete plan")
	}
	return nil
}

// DeleteIssue removes an issue and its dependency edges.
func (s *Store) DeleteIssue(id string) error {
	return s.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM issues WHERE id = ?`, id)
		if err != nil {
			return Internal(err, "delete issue")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NotFound("issue not found: %s", id)
		}
		if _, err := tx.Exec(`DELETE FROM issue_dependencies WHERE issue_id = ? OR depends_on_id = ?`, id, id); err != nil {
			return Internal(err, "delete issue dependencies")
		}
		return nil
	})
}

// AddDependency adds a (issue, dependsOn, depType) edge. When depType is
// 'blocks', a bounded DFS from dependsOn over outbound 'blocks' edges must
// not reach issue, or the operation fails with Integrity.
func (s *Store) AddDependency(issueID, dependsOnID string, depType DepType) error {
	if issueID == dependsOnID {
		return Validation("an issue cannot depend on itself")
	}
	return s.WithTx(func(tx *sql.Tx) error {
		if depType == DepBlocks {
			cycles, err := wouldCycle(tx, issueID, dependsOnID)
			if err != nil {
				return err
			}
			if cycles {
				return Integrity("adding this dependency would create a cycle")
			}
		}
		if _, err := tx.Exec(`INSERT INTO issue_dependencies (issue_id, depends_on_id, dep_type) VALUES (?, ?, ?)`,
			issueID, dependsOnID, depType); err != nil {
			if isUniqueViolation(err) {
				return Conflict("dependency already exists")
			}
			return Internal(err, "insert dependency")
		}
		return markBlockedIfOpenBlocker(tx, issueID, dependsOnID, depType)
	})
}

// markBlockedIfOpenBlocker transitions issueID from open to blocked when a
// new non-closed 'blocks' dependency on dependsOnID was just inserted.
func markBlockedIfOpenBlocker(tx *sql.Tx, issueID, dependsOnID string, depType DepType) error {
	if depType != DepBlocks {
		return nil
	}
	var status IssueStatus
	if err := tx.QueryRow(`SELECT status FROM issues WHERE id = ?`, dependsOnID).Scan(&status); err == nil && status != IssueClosed {
		if _, err := tx.Exec(`UPDATE issues SET status = ? WHERE id = ? AND status = ?`, IssueBlocked, issueID, IssueOpen); err != nil {
			return Internal(err, "mark blocked")
		}
	}
	return nil
}

// wouldCycle runs a bounded DFS from dependsOnID over outbound 'blocks'
// edges; if it reaches issueID, adding issueID -> dependsOnID would close a
// cycle.
func wouldCycle(tx *sql.Tx, issueID, dependsOnID string) (bool, error) {
	visited := map[string]bool{}
	stack := []string{dependsOnID}
	const maxSteps = 100000
	steps := 0
	for len(stack) > 0 {
		steps++
		if steps > maxSteps {
			return false, Internal(nil, "dependency graph traversal exceeded bound")
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == issueID {
			return true, nil
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		rows, err := tx.Query(`SELECT depends_on_id FROM issue_dependencies WHERE issue_id = ? AND dep_type = ?`, cur, DepBlocks)
		if err != nil {
			return false, Internal(err, "traverse dependency graph")
		}
		for rows.Next() {
			var next string
			if err := rows.Scan(&next); err != nil {
				rows.Close()
				return false, Internal(err, "scan dependency edge")
			}
			stack = append(stack, next)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return false, Internal(err, "iterate dependency edges")
		}
		rows.Close()
	}
	return false, nil
}

// RemoveDependency deletes a dependency edge.
func (s *Store) RemoveDependency(issueID, dependsOnID string, depType DepType) error {
	res, err := s.db.Exec(`DELETE FROM issue_dependencies WHERE issue_id = ? AND depends_on_id = ? AND dep_type = ?`,
		issueID, dependsOnID, depType)
	if err != nil {
		return Internal(err, "remove dependency")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("dependency not found")
	}
	return nil
}

// AddLabel/RemoveLabel mutate an issue's label set.
func (s *Store) AddLabel(issueID, label string) error {
	return s.mutateLabels(issueID, func(labels []string) []string {
		for _, l := range labels {
			if l == label {
				return labels
			}
		}
		return append(labels, label)
	})
}

func (s *Store) RemoveLabel(issueID, label string) error {
	return s.mutateLabels(issueID, func(labels []string) []string {
		out := make([]string, 0, len(labels))
		for _, l := range labels {
			if l != label {
				out = append(out, l)
			}
		}
		return out
	})
}

func (s *Store) mutateLabels(issueID string, mutate func([]string) []string) error {
	issue, err := s.GetIssue(issueID)
	if err != nil {
		return err
	}
	newLabels := mutate(issue.Labels)
	labelsJSON, err := json.Marshal(newLabels)
	if err != nil {
		return Internal(err, "marshal labels")
	}
	if _, err := s.db.Exec(`UPDATE issues SET labels = ?, updated_at = ? WHERE id = ?`, string(labelsJSON), nowMS(), issueID); err != nil {
		return Internal(err, "update labels")
	}
	return nil
}

// ClaimIssue assigns an issue to agentID, compare-and-swap style: fails
// with Conflict if already assigned to a different agent.
func (s *Store) ClaimIssue(issueID, agentID string) (*Issue, error) {
	var issue *Issue
	err := s.WithTx(func(tx *sql.Tx) error {
		var err error
		issue, err = scanIssue(tx.QueryRow(`SELECT `+issueColumns+` FROM issues WHERE id = ?`, issueID))
		if err != nil {
			return err
		}
		if issue.AssignedToAgent != "" && issue.AssignedToAgent != agentID {
			return Conflict("issue already claimed by %s", issue.AssignedToAgent)
		}
		now := nowMS()
		if _, err := tx.Exec(`UPDATE issues SET assigned_to_agent = ?, status = ?, updated_at = ? WHERE id = ?`,
			agentID, IssueInProgress, now, issueID); err != nil {
			return Internal(err, "claim issue")
		}
		issue.AssignedToAgent = agentID
		issue.Status = IssueInProgress
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// ReleaseIssue clears an issue's assignment, returning it to open.
func (s *Store) ReleaseIssue(issueID string) error {
	now := nowMS()
	res, err := s.db.Exec(`UPDATE issues SET assigned_to_agent = NULL, status = ?, updated_at = ? WHERE id = ?`,
		IssueOpen, now, issueID)
	if err != nil {
		return Internal(err, "release issue")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return NotFound("issue not found: %s", issueID)
	}
	return nil
}

// GetReady returns open, unassigned, unblocked issues ordered by priority.
func (s *Store) GetReady(projectPath string, limit int) ([]*Issue, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT `+issueColumns+` FROM issues
		WHERE project_path = ? AND status = ? AND (assigned_to_agent IS NULL OR assigned_to_agent = '')
		ORDER BY priority DESC, created_at ASC
		LIMIT ?`, projectPath, IssueOpen, limit)
	if err != nil {
		return nil, Internal(err, "query ready issues")
	}
	defer rows.Close()

	var out []*Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// GetNextBlock atomically fetches up to count ready issues and claims them
// for agentID.
func (s *Store) GetNextBlock(projectPath, agentID string, count int) ([]*Issue, error) {
	if count <= 0 {
		count = 1
	}
	var claimed []*Issue
	err := s.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT `+issueColumns+` FROM issues
			WHERE project_path = ? AND status = ? AND (assigned_to_agent IS NULL OR assigned_to_agent = '')
			ORDER BY priority DESC, created_at ASC
			LIMIT ?`, projectPath, IssueOpen, count)
		if err != nil {
			return Internal(err, "query ready issues")
		}
		var candidates []*Issue
		for rows.Next() {
			issue, err := scanIssue(rows)
			if err != nil {
				rows.Close()
				return err
			}
			candidates = append(candidates, issue)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return Internal(err, "iterate ready issues")
		}

		now := nowMS()
		for _, issue := range candidates {
			res, err := tx.Exec(`UPDATE issues SET assigned_to_agent = ?, status = ?, updated_at = ?
				WHERE id = ? AND (assigned_to_agent IS NULL OR assigned_to_agent = '')`,
				agentID, IssueInProgress, now, issue.ID)
			if err != nil {
				return Internal(err, "claim issue")
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				continue // raced with another claimant
			}
			issue.AssignedToAgent = agentID
			issue.Status = IssueInProgress
			issue.UpdatedAt = now
			claimed = append(claimed, issue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// IssueSpec is one element of a CreateBatch request.
type IssueSpec struct {
	Title       string
	Description string
	Details     string
	Priority    int
	IssueType   IssueType
	ParentID    string // may be a literal id or "$N" referencing a prior spec in the batch
	PlanID      string
	Labels      []string
}

// DependencySpec references batch members by array index.
type DependencySpec struct {
	IssueIndex     int
	DependsOnIndex int
	DepType        DepType
}

// CreateBatch implements the batch creation semantics in spec.md §4.2.4:
// allocate all short_ids in one transaction, resolve $N parent references,
// insert dependency edges, check acyclicity over the combined graph, and
// roll back everything on any failure.
func (s *Store) CreateBatch(projectPath string, specs []IssueSpec, deps []DependencySpec, createdInSession string) ([]*Issue, error) {
	if len(specs) == 0 {
		return nil, Validation("at least one issue is required")
	}

	var created []*Issue
	err := s.WithTx(func(tx *sql.Tx) error {
		created = make([]*Issue, len(specs))
		for i, spec := range specs {
			parentID := spec.ParentID
			if strings.HasPrefix(parentID, "$") {
				idx, ok := parseBatchRef(parentID, len(specs))
				if !ok {
					return Validation("invalid parent reference %q", parentID)
				}
				if created[idx] == nil {
					return Validation("parent reference %q not yet created", parentID)
				}
				parentID = created[idx].ID
			}
			shortID, err := allocateShortID(tx, projectPath, "issue")
			if err != nil {
				return err
			}
			issue, err := insertIssue(tx, projectPath, shortID, spec.Title, spec.Description, spec.Details,
				spec.Priority, spec.IssueType, parentID, spec.PlanID, createdInSession, spec.Labels)
			if err != nil {
				return err
			}
			created[i] = issue
		}

		for _, dep := range deps {
			if dep.IssueIndex < 0 || dep.IssueIndex >= len(created) || dep.DependsOnIndex < 0 || dep.DependsOnIndex >= len(created) {
				return Validation("dependency index out of range")
			}
			issueID := created[dep.IssueIndex].ID
			dependsOnID := created[dep.DependsOnIndex].ID
			if dep.DepType == DepBlocks {
				cyc, err := wouldCycle(tx, issueID, dependsOnID)
				if err != nil {
					return err
				}
				if cyc {
					return Integrity("batch dependency edges contain a cycle")
				}
			}
			if _, err := tx.Exec(`INSERT INTO issue_dependencies (issue_id, depends_on_id, dep_type) VALUES (?, ?, ?)`,
				issueID, dependsOnID, dep.DepType); err != nil {
				return Internal(err, "insert batch dependency")
			}
			if err := markBlockedIfOpenBlocker(tx, issueID, dependsOnID, dep.DepType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func parseBatchRef(ref string, n int) (int, bool) {
	ref = strings.TrimPrefix(ref, "$")
	idx := 0
	for _, c := range ref {
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
