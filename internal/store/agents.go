package store

import "database/sql"

// GetAgent fetches an agent's binding row, or nil if it has never been seen.
func (s *Store) GetAgent(agentID string) (*Agent, error) {
	var a Agent
	var curSession, lastProject, lastBranch, provider sql.NullString
	err := s.db.QueryRow(`
		SELECT agent_id, current_session_id, last_project_path, last_branch, provider, last_active_at
		FROM agents WHERE agent_id = ?`, agentID,
	).Scan(&a.AgentID, &curSession, &lastProject, &lastBranch, &provider, &a.LastActiveAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, Internal(err, "get agent")
	}
	a.CurrentSessionID = curSession.String
	a.LastProjectPath = lastProject.String
	a.LastBranch = lastBranch.String
	a.Provider = provider.String
	return &a, nil
}

// UpsertAgentBinding records agentID's current session and last-seen
// project/branch/provider, creating the agent row if it doesn't exist yet.
// Called on every mutating RPC, per spec.md §3's Agent lifecycle note.
func (s *Store) UpsertAgentBinding(agentID, currentSessionID, projectPath, branch, provider string) error {
	now := nowMS()
	_, err := s.db.Exec(`
		INSERT INTO agents (agent_id, current_session_id, last_project_path, last_branch, provider, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			current_session_id = excluded.current_session_id,
			last_project_path = excluded.last_project_path,
			last_branch = excluded.last_branch,
			provider = excluded.provider,
			last_active_at = excluded.last_active_at`,
		agentID, nullString(currentSessionID), nullString(projectPath), nullString(branch), nullString(provider), now,
	)
	if err != nil {
		return Internal(err, "upsert agent binding")
	}
	return nil
}

// TouchAgent refreshes only last_active_at, used by the RPC layer after
// every mutating call regardless of whether the binding itself changed.
func (s *Store) TouchAgent(agentID string) error {
	res, err := s.db.Exec(`UPDATE agents SET last_active_at = ? WHERE agent_id = ?`, nowMS(), agentID)
	if err != nil {
		return Internal(err, "touch agent")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.UpsertAgentBinding(agentID, "", "", "", "")
	}
	return nil
}
