package agentbind

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/savecontext/savecontext/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	os.Unsetenv(AgentIDEnvVar)
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestStartResumeWithNewPath reproduces spec.md §8 scenario 5: an agent
// with an active session bound to one project path calls session_start
// from a second path and gets attached rather than forked.
func TestStartResumeWithNewPath(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := st.CreateProject("/repo/dashboard", "dashboard", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	b := New(st)

	first, err := b.Start(StartRequest{ProjectPath: "/repo/app", Branch: "main", RequestedName: "s1", RawProvider: "claude-code"})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if first.Resumed {
		t.Fatalf("expected first call to create a new session")
	}

	second, err := b.Start(StartRequest{ProjectPath: "/repo/dashboard", Branch: "main", RequestedName: "whatever", RawProvider: "claude-code"})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !second.Resumed {
		t.Fatalf("expected second call to resume the existing session")
	}
	if !second.PathAdded {
		t.Fatalf("expected second call to report path_added=true")
	}
	if second.Session.ID != first.Session.ID {
		t.Fatalf("expected same session resumed, got %s vs %s", second.Session.ID, first.Session.ID)
	}
	if second.Warning == "" {
		t.Errorf("expected a warning that the requested name was ignored")
	}

	paths, err := st.SessionProjects(first.Session.ID)
	if err != nil {
		t.Fatalf("SessionProjects: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected session attached to both project paths, got %d", len(paths))
	}
}

func TestStartForceNewPausesOnlyCurrentSession(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	b := New(st)

	s1, err := b.Start(StartRequest{ProjectPath: "/repo/app", Branch: "main", RequestedName: "s1", RawProvider: "claude-code"})
	if err != nil {
		t.Fatalf("start s1: %v", err)
	}
	s2, err := b.Start(StartRequest{ProjectPath: "/repo/app", Branch: "main", RequestedName: "s2", RawProvider: "claude-code", ForceNew: true})
	if err != nil {
		t.Fatalf("start s2 (force_new): %v", err)
	}
	if s2.Session.ID == s1.Session.ID {
		t.Fatalf("expected force_new to create a distinct session")
	}

	s1After, err := st.GetSession(s1.Session.ID)
	if err != nil {
		t.Fatalf("GetSession s1: %v", err)
	}
	if s1After.Status != store.SessionPaused {
		t.Errorf("expected s1 paused by force_new, got %s", s1After.Status)
	}

	s3, err := b.Start(StartRequest{ProjectPath: "/repo/app", Branch: "main", RequestedName: "s3", RawProvider: "claude-code", ForceNew: true})
	if err != nil {
		t.Fatalf("start s3 (force_new): %v", err)
	}
	if s3.Session.ID == s2.Session.ID {
		t.Fatalf("expected another distinct session")
	}

	// s1, paused earlier by the first force_new, must remain untouched by
	// the second force_new call per the documented open-question decision.
	s1Final, err := st.GetSession(s1.Session.ID)
	if err != nil {
		t.Fatalf("GetSession s1 final: %v", err)
	}
	if s1Final.Status != store.SessionPaused {
		t.Errorf("expected s1 to remain paused, got %s", s1Final.Status)
	}
}

func TestStartUnknownProjectFails(t *testing.T) {
	st := newTestStore(t)
	b := New(st)
	_, err := b.Start(StartRequest{ProjectPath: "/does/not/exist", RawProvider: "claude-code"})
	se, ok := store.AsStoreError(err)
	if !ok || se.Kind != store.KindNotFound {
		t.Fatalf("expected NotFound for unregistered project, got %v", err)
	}
}
