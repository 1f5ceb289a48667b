package rpc

import (
	"testing"

	"github.com/savecontext/savecontext/internal/store"
)

func newIssueRegistry(t *testing.T, s *store.Store) *Registry {
	t.Helper()
	reg := NewRegistry()
	registerIssueTools(reg, s)
	return reg
}

func TestIssueCreateThenCompleteCascadesViaRPC(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)

	createBlocker := reg.Execute("issue_create", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "title": "blocker",
	})
	if !createBlocker.Success {
		t.Fatalf("create blocker failed: %+v", createBlocker.Error)
	}
	blocker := createBlocker.Data.(*store.Issue)

	createDependent := reg.Execute("issue_create", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "title": "dependent",
	})
	dependent := createDependent.Data.(*store.Issue)

	dep := reg.Execute("issue_dependency_add", "agent-1", map[string]interface{}{
		"issue_id": dependent.ID, "depends_on_id": blocker.ID, "dep_type": "blocks",
	})
	if !dep.Success {
		t.Fatalf("dependency_add failed: %+v", dep.Error)
	}

	ready := reg.Execute("issue_get_ready", "agent-1", map[string]interface{}{"project_path": "/repo/app"})
	readyIssues := ready.Data.([]*store.Issue)
	for _, i := range readyIssues {
		if i.ID == dependent.ID {
			t.Fatalf("expected dependent issue to be excluded from ready list while blocked")
		}
	}

	complete := reg.Execute("issue_complete", "agent-1", map[string]interface{}{"id": blocker.ID})
	if !complete.Success {
		t.Fatalf("issue_complete failed: %+v", complete.Error)
	}

	afterGet, err := st.GetIssue(dependent.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if afterGet.Status != store.IssueOpen {
		t.Fatalf("expected dependent issue unblocked to open, got %s", afterGet.Status)
	}
}

func TestIssueUpdateRequiresCurrentTitleMatch(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)
	created := reg.Execute("issue_create", "agent-1", map[string]interface{}{
		"project_path": "/repo/app", "title": "fix the bug",
	})
	issue := created.Data.(*store.Issue)

	bad := reg.Execute("issue_update", "agent-1", map[string]interface{}{
		"id": issue.ID, "current_title": "wrong title", "title": "new title",
	})
	if bad.Success {
		t.Fatalf("expected update to fail on title mismatch")
	}

	good := reg.Execute("issue_update", "agent-1", map[string]interface{}{
		"id": issue.ID, "current_title": issue.Title, "title": "new title",
	})
	if !good.Success {
		t.Fatalf("expected update to succeed, got %+v", good.Error)
	}
	updated := good.Data.(*store.Issue)
	if updated.Title != "new title" {
		t.Fatalf("expected title updated, got %q", updated.Title)
	}
}

func TestIssueDependencyAddRejectsCycleViaRPC(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)
	a := reg.Execute("issue_create", "agent-1", map[string]interface{}{"project_path": "/repo/app", "title": "a"}).Data.(*store.Issue)
	b := reg.Execute("issue_create", "agent-1", map[string]interface{}{"project_path": "/repo/app", "title": "b"}).Data.(*store.Issue)

	if env := reg.Execute("issue_dependency_add", "agent-1", map[string]interface{}{
		"issue_id": b.ID, "depends_on_id": a.ID, "dep_type": "blocks",
	}); !env.Success {
		t.Fatalf("first dependency_add failed: %+v", env.Error)
	}

	cyclic := reg.Execute("issue_dependency_add", "agent-1", map[string]interface{}{
		"issue_id": a.ID, "depends_on_id": b.ID, "dep_type": "blocks",
	})
	if cyclic.Success {
		t.Fatalf("expected cycle-forming dependency to fail")
	}
	if cyclic.Error == nil || cyclic.Error.Code != "integrity" {
		t.Fatalf("expected integrity error for cycle, got %+v", cyclic.Error)
	}
}

func TestIssueClaimConflictsForDifferentAgentViaRPC(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)
	issue := reg.Execute("issue_create", "agent-1", map[string]interface{}{"project_path": "/repo/app", "title": "t"}).Data.(*store.Issue)

	first := reg.Execute("issue_claim", "agent-a", map[string]interface{}{"id": issue.ID})
	if !first.Success {
		t.Fatalf("expected first claim to succeed, got %+v", first.Error)
	}

	second := reg.Execute("issue_claim", "agent-b", map[string]interface{}{"id": issue.ID})
	if second.Success {
		t.Fatalf("expected second agent's claim to conflict")
	}
	if second.Error == nil || second.Error.Code != "conflict" {
		t.Fatalf("expected conflict error, got %+v", second.Error)
	}
}

func TestIssueCreateBatchWithParentRefsAndDependencies(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)
	env := reg.Execute("issue_create_batch", "agent-1", map[string]interface{}{
		"project_path": "/repo/app",
		"issues": []interface{}{
			map[string]interface{}{"title": "epic"},
			map[string]interface{}{"title": "subtask", "parent_id": "$0"},
		},
		"dependencies": []interface{}{
			map[string]interface{}{"issue_index": float64(1), "depends_on_index": float64(0), "dep_type": "blocks"},
		},
	})
	if !env.Success {
		t.Fatalf("issue_create_batch failed: %+v", env.Error)
	}
	created := env.Data.([]*store.Issue)
	if len(created) != 2 {
		t.Fatalf("expected 2 issues created, got %d", len(created))
	}
	if created[1].ParentID != created[0].ID {
		t.Fatalf("expected subtask's parent resolved to the epic's real id, got %q", created[1].ParentID)
	}
}

func TestIssueCreateBatchRollsBackOnCycle(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	reg := newIssueRegistry(t, st)
	env := reg.Execute("issue_create_batch", "agent-1", map[string]interface{}{
		"project_path": "/repo/app",
		"issues": []interface{}{
			map[string]interface{}{"title": "a"},
			map[string]interface{}{"title": "b"},
		},
		"dependencies": []interface{}{
			map[string]interface{}{"issue_index": float64(0), "depends_on_index": float64(1), "dep_type": "blocks"},
			map[string]interface{}{"issue_index": float64(1), "depends_on_index": float64(0), "dep_type": "blocks"},
		},
	})
	if env.Success {
		t.Fatalf("expected batch with an internal cycle to fail")
	}

	issues, err := st.ListIssues(store.IssueListFilter{ProjectPath: "/repo/app"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected rolled-back batch to leave no issues behind, got %d", len(issues))
	}
}
