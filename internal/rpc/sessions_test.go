package rpc

import (
	"path/filepath"
	"testing"

	"github.com/savecontext/savecontext/internal/agentbind"
	"github.com/savecontext/savecontext/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestRegistry(t *testing.T, s *store.Store) *Registry {
	t.Helper()
	reg := NewRegistry()
	binder := agentbind.New(s)
	registerSessionTools(reg, s, binder)
	registerContextTools(reg, s, nil)
	registerCheckpointTools(reg, s)
	return reg
}

func TestSessionStartCreatesThenResumesSameAgent(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newTestRegistry(t, st)

	env1 := reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app",
		"branch":       "main",
		"name":         "s1",
		"provider":     "claude-code",
	})
	if !env1.Success {
		t.Fatalf("expected success, got %+v", env1)
	}
	data1, ok := env1.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map data, got %T", env1.Data)
	}
	if data1["resumed"] != false {
		t.Fatalf("expected fresh session on first call, got %+v", data1)
	}

	env2 := reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app",
		"branch":       "main",
		"name":         "s1",
		"provider":     "claude-code",
	})
	if !env2.Success {
		t.Fatalf("expected success, got %+v", env2)
	}
	data2 := env2.Data.(map[string]interface{})
	if data2["resumed"] != true {
		t.Fatalf("expected the second call from the same agent to resume, got %+v", data2)
	}
}

func TestSessionStartMissingProjectPathFails(t *testing.T) {
	st := newTestStore(t)
	reg := newTestRegistry(t, st)
	env := reg.Execute("session_start", "agent-1", map[string]interface{}{
		"branch": "main",
	})
	if env.Success {
		t.Fatalf("expected failure for missing project_path")
	}
	if env.Error == nil || env.Error.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", env.Error)
	}
}

func TestSessionRenameRequiresCurrentNameMatch(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newTestRegistry(t, st)
	start := reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "name": "original", "provider": "claude-code",
	})
	sess := start.Data.(map[string]interface{})["session"].(*store.Session)

	bad := reg.Execute("session_rename", "agent-1", map[string]interface{}{
		"session_id":   sess.ID,
		"current_name": "wrong-name",
		"new_name":     "renamed",
	})
	if bad.Success {
		t.Fatalf("expected rename to fail on name mismatch")
	}

	good := reg.Execute("session_rename", "agent-1", map[string]interface{}{
		"session_id":   sess.ID,
		"current_name": sess.Name,
		"new_name":     "renamed",
	})
	if !good.Success {
		t.Fatalf("expected rename to succeed, got %+v", good.Error)
	}
}

func TestUnknownToolReturnsNotFoundEnvelope(t *testing.T) {
	st := newTestStore(t)
	reg := newTestRegistry(t, st)
	env := reg.Execute("not_a_real_tool", "agent-1", nil)
	if env.Success {
		t.Fatalf("expected failure for unknown tool")
	}
	if env.Error == nil || env.Error.Code != "not_found" {
		t.Fatalf("expected not_found error, got %+v", env.Error)
	}
}

func TestContextSaveThenGetUsesImplicitSessionScope(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newTestRegistry(t, st)
	reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "name": "s1", "provider": "claude-code",
	})

	save := reg.Execute("context_save", "agent-1", map[string]interface{}{
		"key": "decision-1", "value": "use postgres", "category": "decision",
	})
	if !save.Success {
		t.Fatalf("expected context_save to succeed, got %+v", save.Error)
	}

	get := reg.Execute("context_get", "agent-1", map[string]interface{}{"key": "decision-1"})
	if !get.Success {
		t.Fatalf("expected context_get to succeed, got %+v", get.Error)
	}
	item := get.Data.(*store.ContextItem)
	if item.Value != "use postgres" {
		t.Fatalf("expected saved value round-tripped, got %q", item.Value)
	}
}

func TestContextSaveWithoutBoundSessionFailsValidation(t *testing.T) {
	st := newTestStore(t)
	reg := newTestRegistry(t, st)
	env := reg.Execute("context_save", "agent-with-no-session", map[string]interface{}{
		"key": "k", "value": "v",
	})
	if env.Success {
		t.Fatalf("expected failure with no bound session")
	}
	if env.Error == nil || env.Error.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", env.Error)
	}
}

func TestCheckpointRestoreRequiresNameVerificationThroughRPC(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newTestRegistry(t, st)
	reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "name": "s1", "provider": "claude-code",
	})
	reg.Execute("context_save", "agent-1", map[string]interface{}{
		"key": "k1", "value": "v1",
	})

	cpEnv := reg.Execute("checkpoint_create", "agent-1", map[string]interface{}{"name": "cp1"})
	if !cpEnv.Success {
		t.Fatalf("checkpoint_create failed: %+v", cpEnv.Error)
	}
	cp := cpEnv.Data.(*store.Checkpoint)

	restoreBad := reg.Execute("checkpoint_restore", "agent-1", map[string]interface{}{
		"id": cp.ID, "current_name": "wrong",
	})
	if restoreBad.Success {
		t.Fatalf("expected restore to fail on bad name verification")
	}

	restoreGood := reg.Execute("checkpoint_restore", "agent-1", map[string]interface{}{
		"id": cp.ID, "current_name": cp.Name,
	})
	if !restoreGood.Success {
		t.Fatalf("expected restore to succeed, got %+v", restoreGood.Error)
	}
}

func TestContextTagRejectsMissingTags(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newTestRegistry(t, st)
	reg.Execute("session_start", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "name": "s1", "provider": "claude-code",
	})
	env := reg.Execute("context_tag", "agent-1", map[string]interface{}{
		"action": "add", "keys": []interface{}{"k1"},
	})
	if env.Success {
		t.Fatalf("expected failure when tags is missing")
	}
	if env.Error == nil || env.Error.Code != "validation" {
		t.Fatalf("expected validation error, got %+v", env.Error)
	}
}
