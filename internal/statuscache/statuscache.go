// Package statuscache writes the best-effort JSON snapshots consumed by
// the (out-of-scope) status-line hook script, under
// ${HOME}/.savecontext/status-cache/. Refreshing it is itself best-effort:
// a write failure here never fails the RPC call that triggered it.
package statuscache

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Snapshot is what a status-line script reads to render its prompt segment.
type Snapshot struct {
	AgentID     string `json:"agent_id"`
	SessionID   string `json:"session_id,omitempty"`
	SessionName string `json:"session_name,omitempty"`
	ProjectPath string `json:"project_path,omitempty"`
	Channel     string `json:"channel,omitempty"`
	Status      string `json:"status,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Cache writes one snapshot file per agent under a base directory.
type Cache struct {
	dir string
}

func New(dataDir string) *Cache {
	return &Cache{dir: filepath.Join(dataDir, "status-cache")}
}

// Refresh writes snap for agentID, creating the directory on first use.
// Errors are returned for callers that want to log them, but are never
// fatal to the caller's own operation — see spec.md §4.7 step 5.
func (c *Cache) Refresh(agentID string, snap Snapshot) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, agentID+".json"), data, 0o644)
}

// Read loads the last snapshot written for agentID, in the same file format
// the status-line script reads.
func (c *Cache) Read(agentID string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, agentID+".json"))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
