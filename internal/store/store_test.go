package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func mustProject(t *testing.T, st *Store, path, name string) *Project {
	t.Helper()
	p, err := st.CreateProject(path, name, "", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	return p
}

func mustSession(t *testing.T, st *Store, projectPath string) *Session {
	t.Helper()
	sess, err := st.CreateSession("work", "", "main", "general", projectPath)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return sess
}

func TestCreateProjectDefaultsIssuePrefix(t *testing.T) {
	st := newTestStore(t)
	p := mustProject(t, st, "/repo/app", "myapp")
	if p.IssuePrefix != "MYAP" {
		t.Errorf("expected default prefix MYAP, got %q", p.IssuePrefix)
	}
}

func TestCreateProjectDuplicateConflict(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "myapp")
	_, err := st.CreateProject("/repo/app", "myapp", "", "")
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindConflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestDeleteProjectCascadesIssuesPlansMemoryButUnlinksSessions(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "myapp")
	sess := mustSession(t, st, "/repo/app")

	if _, err := st.CreateIssue("/repo/app", "fix bug", "", "", 2, IssueTask, "", "", "", nil); err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if _, err := st.SaveMemory("/repo/app", "cmd", "go test ./...", MemoryCommand); err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}

	if err := st.DeleteProject("/repo/app"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	issues, err := st.ListIssues(IssueListFilter{ProjectPath: "/repo/app"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected issues to cascade-delete, got %d", len(issues))
	}

	mem, err := st.ListMemory("/repo/app", "")
	if err != nil {
		t.Fatalf("ListMemory: %v", err)
	}
	if len(mem) != 0 {
		t.Errorf("expected memory to cascade-delete, got %d", len(mem))
	}

	// Session itself survives, just unlinked from the deleted project.
	if _, err := st.GetSession(sess.ID); err != nil {
		t.Errorf("expected session to survive project deletion, got %v", err)
	}
}

func TestSessionProjectsAlwaysHasExactlyOnePrimary(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	mustProject(t, st, "/repo/dash", "dash")
	sess := mustSession(t, st, "/repo/app")

	if err := st.AddSessionPath(sess.ID, "/repo/dash"); err != nil {
		t.Fatalf("AddSessionPath: %v", err)
	}

	sps, err := st.SessionProjects(sess.ID)
	if err != nil {
		t.Fatalf("SessionProjects: %v", err)
	}
	if len(sps) != 2 {
		t.Fatalf("expected 2 session projects, got %d", len(sps))
	}
	primaries := 0
	for _, sp := range sps {
		if sp.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("expected exactly 1 primary, got %d", primaries)
	}
}

func TestRemoveSessionPathPromotesNewPrimary(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	mustProject(t, st, "/repo/dash", "dash")
	sess := mustSession(t, st, "/repo/app")

	if err := st.AddSessionPath(sess.ID, "/repo/dash"); err != nil {
		t.Fatalf("AddSessionPath: %v", err)
	}

	// /repo/app is primary (it was the session's original path); removing it
	// must leave exactly one primary among the remaining paths.
	if err := st.RemoveSessionPath(sess.ID, "/repo/app"); err != nil {
		t.Fatalf("RemoveSessionPath: %v", err)
	}

	sps, err := st.SessionProjects(sess.ID)
	if err != nil {
		t.Fatalf("SessionProjects: %v", err)
	}
	if len(sps) != 1 {
		t.Fatalf("expected 1 remaining session project, got %d", len(sps))
	}
	if !sps[0].IsPrimary {
		t.Errorf("expected the one remaining session path to be promoted to primary, got %+v", sps[0])
	}
}

func TestRemoveLastSessionPathRejected(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")

	err := st.RemoveSessionPath(sess.ID, "/repo/app")
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindConflict {
		t.Fatalf("expected Conflict removing last path, got %v", err)
	}
}

func TestDeleteActiveSessionRejected(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")

	err := st.DeleteSession(sess.ID)
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindConflict {
		t.Fatalf("expected Conflict deleting active session, got %v", err)
	}

	if err := st.PauseSession(sess.ID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	if err := st.DeleteSession(sess.ID); err != nil {
		t.Fatalf("expected delete to succeed once paused, got %v", err)
	}
}

func TestRenameSessionRequiresCurrentName(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")

	_, err := st.RenameSession(sess.ID, "wrong-name", "new-name")
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindValidation {
		t.Fatalf("expected Validation on name mismatch, got %v", err)
	}

	renamed, err := st.RenameSession(sess.ID, "work", "new-name")
	if err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	if renamed.Name != "new-name" {
		t.Errorf("expected renamed session name new-name, got %q", renamed.Name)
	}
}

func TestSwitchPausesCurrentAndResumesTarget(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	s1 := mustSession(t, st, "/repo/app")
	s2, err := st.CreateSession("other", "", "main", "general", "/repo/app")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resumed, err := st.Switch(s1.ID, s2.ID)
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if resumed.Status != SessionActive {
		t.Errorf("expected target session active, got %s", resumed.Status)
	}

	s1After, err := st.GetSession(s1.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s1After.Status != SessionPaused {
		t.Errorf("expected previous session paused, got %s", s1After.Status)
	}
}

func TestSwitchRejectsCompletedTarget(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	s1 := mustSession(t, st, "/repo/app")
	if err := st.EndSession(s1.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	_, err := st.Switch("", s1.ID)
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindValidation {
		t.Fatalf("expected Validation switching to completed session, got %v", err)
	}
}

func TestSaveContextItemUpsertPreservesCreatedAt(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")

	first, err := st.SaveContextItem(sess.ID, "k1", "v1", CategoryNote, PriorityNormal, "general", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}

	second, err := st.SaveContextItem(sess.ID, "k1", "v2", CategoryDecision, PriorityHigh, "general", []string{"x"})
	if err != nil {
		t.Fatalf("SaveContextItem (overwrite): %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected overwrite to keep id, got %s vs %s", second.ID, first.ID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("expected created_at preserved, got %d vs %d", second.CreatedAt, first.CreatedAt)
	}
	if second.Value != "v2" || second.Category != CategoryDecision {
		t.Errorf("expected overwrite to apply new fields, got %+v", second)
	}
}

func TestSaveContextItemRejectsOversizedValue(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")

	ok := make([]byte, MaxContextValueBytes)
	if _, err := st.SaveContextItem(sess.ID, "k", string(ok), "", "", "", nil); err != nil {
		t.Fatalf("expected exactly-100KB value accepted, got %v", err)
	}

	tooBig := make([]byte, MaxContextValueBytes+1)
	_, err := st.SaveContextItem(sess.ID, "k2", string(tooBig), "", "", "", nil)
	se, isErr := AsStoreError(err)
	if !isErr || se.Kind != KindValidation {
		t.Fatalf("expected Validation for oversized value, got %v", err)
	}
}

func TestDeleteContextItemRemovesChunksAndCheckpointRefs(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	item, err := st.SaveContextItem(sess.ID, "k", "v", "", "", "", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if err := st.UpsertChunks(item.ID, "local", "hash-v1", []VectorChunkInput{{ChunkIndex: 0, Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	cp, err := st.CreateCheckpoint(sess.ID, "cp1", "", "", "", CheckpointFilter{})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}

	if err := st.DeleteContextItem(item.ID); err != nil {
		t.Fatalf("DeleteContextItem: %v", err)
	}

	matches, err := st.Search([]float32{1, 0, 0}, "", 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected vector chunks removed, got %d matches", len(matches))
	}

	items, err := st.CheckpointItems(cp.ID)
	if err != nil {
		t.Fatalf("CheckpointItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected checkpoint membership removed, got %d", len(items))
	}
}

func TestTagItemsGlobPattern(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	for _, k := range []string{"auth-login", "auth-logout", "ui-button"} {
		if _, err := st.SaveContextItem(sess.ID, k, "v", "", "", "", nil); err != nil {
			t.Fatalf("SaveContextItem(%s): %v", k, err)
		}
	}

	n, err := st.TagItems(sess.ID, nil, "auth-*", []string{"auth"}, TagAdd)
	if err != nil {
		t.Fatalf("TagItems: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 items tagged, got %d", n)
	}

	item, err := st.GetContextItem(sess.ID, "ui-button")
	if err != nil {
		t.Fatalf("GetContextItem: %v", err)
	}
	if len(item.Tags) != 0 {
		t.Errorf("expected ui-button untouched, got tags %v", item.Tags)
	}
}

func TestIssueShortIDAllocationAndUniqueness(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")

	i1, err := st.CreateIssue("/repo/app", "first", "", "", 2, IssueTask, "", "", "", nil)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	i2, err := st.CreateIssue("/repo/app", "second", "", "", 2, IssueTask, "", "", "", nil)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if i1.ShortID == i2.ShortID {
		t.Fatalf("expected distinct short ids, got %s twice", i1.ShortID)
	}
	if i1.ShortID != "APP-1" || i2.ShortID != "APP-2" {
		t.Errorf("expected sequential APP-1/APP-2 short ids, got %s/%s", i1.ShortID, i2.ShortID)
	}
}

func TestCompleteIssueCascadesUnblockAndPlanCompletion(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	plan, err := st.CreatePlan("/repo/app", "PL", "content", "")
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	epic, err := st.CreateIssue("/repo/app", "epic", "", "", 2, IssueEpic, "", plan.ID, "", nil)
	if err != nil {
		t.Fatalf("CreateIssue(epic): %v", err)
	}
	blocker, err := st.CreateIssue("/repo/app", "blocker", "", "", 2, IssueTask, epic.ID, plan.ID, "", nil)
	if err != nil {
		t.Fatalf("CreateIssue(blocker): %v", err)
	}
	blocked, err := st.CreateIssue("/repo/app", "blocked", "", "", 2, IssueTask, epic.ID, plan.ID, "", nil)
	if err != nil {
		t.Fatalf("CreateIssue(blocked): %v", err)
	}
	if err := st.AddDependency(blocked.ID, blocker.ID, DepBlocks); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	blockedAfter, err := st.GetIssue(blocked.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if blockedAfter.Status != IssueBlocked {
		t.Fatalf("expected blocked issue marked blocked, got %s", blockedAfter.Status)
	}

	if _, err := st.CompleteIssue(blocker.ID, "agent-a", "sess-1"); err != nil {
		t.Fatalf("CompleteIssue(blocker): %v", err)
	}
	blockedAfterUnblock, err := st.GetIssue(blocked.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if blockedAfterUnblock.Status != IssueOpen {
		t.Fatalf("expected dependent unblocked to open, got %s", blockedAfterUnblock.Status)
	}

	if _, err := st.CompleteIssue(blockedAfterUnblock.ID, "agent-a", "sess-1"); err != nil {
		t.Fatalf("CompleteIssue(blocked): %v", err)
	}
	planMid, err := st.GetPlan(plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if planMid.Status == PlanCompleted {
		t.Fatalf("plan should not complete while epic still open")
	}

	if _, err := st.CompleteIssue(epic.ID, "agent-a", "sess-1"); err != nil {
		t.Fatalf("CompleteIssue(epic): %v", err)
	}
	planAfter, err := st.GetPlan(plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if planAfter.Status != PlanCompleted {
		t.Fatalf("expected plan auto-completed, got %s", planAfter.Status)
	}
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	a, _ := st.CreateIssue("/repo/app", "a", "", "", 2, IssueTask, "", "", "", nil)
	b, _ := st.CreateIssue("/repo/app", "b", "", "", 2, IssueTask, "", "", "", nil)
	c, _ := st.CreateIssue("/repo/app", "c", "", "", 2, IssueTask, "", "", "", nil)

	if err := st.AddDependency(a.ID, b.ID, DepBlocks); err != nil {
		t.Fatalf("AddDependency a<-b: %v", err)
	}
	if err := st.AddDependency(b.ID, c.ID, DepBlocks); err != nil {
		t.Fatalf("AddDependency b<-c: %v", err)
	}

	err := st.AddDependency(c.ID, a.ID, DepBlocks)
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindIntegrity {
		t.Fatalf("expected Integrity on cycle, got %v", err)
	}
}

func TestGetReadyExcludesBlockedAndAssigned(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/p", "p")
	sc3, _ := st.CreateIssue("/repo/p", "SC-3", "", "", 4, IssueTask, "", "", "", nil)
	sc2, _ := st.CreateIssue("/repo/p", "SC-2", "", "", 2, IssueTask, "", "", "", nil)
	sc1, _ := st.CreateIssue("/repo/p", "SC-1", "", "", 3, IssueTask, "", "", "", nil)
	if err := st.AddDependency(sc1.ID, sc2.ID, DepBlocks); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	claimedA, err := st.GetNextBlock("/repo/p", "agent-a", 1)
	if err != nil {
		t.Fatalf("GetNextBlock A: %v", err)
	}
	if len(claimedA) != 1 || claimedA[0].ID != sc3.ID {
		t.Fatalf("expected A to claim SC-3 (highest priority), got %+v", claimedA)
	}

	claimedB, err := st.GetNextBlock("/repo/p", "agent-b", 1)
	if err != nil {
		t.Fatalf("GetNextBlock B: %v", err)
	}
	if len(claimedB) != 1 || claimedB[0].ID != sc2.ID {
		t.Fatalf("expected B to claim SC-2, got %+v", claimedB)
	}

	ready, err := st.GetReady("/repo/p", 10)
	if err != nil {
		t.Fatalf("GetReady: %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("expected no ready issues left (SC-1 blocked, others claimed), got %+v", ready)
	}
}

func TestClaimIssueConflictsOnDifferentAgent(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/p", "p")
	issue, _ := st.CreateIssue("/repo/p", "task", "", "", 2, IssueTask, "", "", "", nil)

	if _, err := st.ClaimIssue(issue.ID, "agent-a"); err != nil {
		t.Fatalf("ClaimIssue: %v", err)
	}
	_, err := st.ClaimIssue(issue.ID, "agent-b")
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindConflict {
		t.Fatalf("expected Conflict claiming already-claimed issue, got %v", err)
	}
}

func TestCreateBatchResolvesParentRefsAndChecksAcyclicity(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/p", "p")

	specs := []IssueSpec{
		{Title: "epic", IssueType: IssueEpic},
		{Title: "sub1", IssueType: IssueTask, ParentID: "$0"},
		{Title: "sub2", IssueType: IssueTask, ParentID: "$0"},
	}
	deps := []DependencySpec{{IssueIndex: 2, DependsOnIndex: 1, DepType: DepBlocks}}

	created, err := st.CreateBatch("/repo/p", specs, deps, "")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 created issues, got %d", len(created))
	}
	if created[1].ParentID != created[0].ID || created[2].ParentID != created[0].ID {
		t.Errorf("expected $0 parent refs resolved to epic id")
	}
}

func TestCreateBatchRollsBackOnCycleInBatchDeps(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/p", "p")

	specs := []IssueSpec{{Title: "a"}, {Title: "b"}}
	deps := []DependencySpec{
		{IssueIndex: 0, DependsOnIndex: 1, DepType: DepBlocks},
		{IssueIndex: 1, DependsOnIndex: 0, DepType: DepBlocks},
	}
	_, err := st.CreateBatch("/repo/p", specs, deps, "")
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindIntegrity {
		t.Fatalf("expected Integrity on batch cycle, got %v", err)
	}

	issues, err := st.ListIssues(IssueListFilter{ProjectPath: "/repo/p"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected whole batch rolled back, got %d issues", len(issues))
	}
}

func TestCheckpointCreateRestoreRoundTrip(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	if _, err := st.SaveContextItem(sess.ID, "k1", "v1", CategoryDecision, PriorityHigh, "general", []string{"auth"}); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if _, err := st.SaveContextItem(sess.ID, "k2", "v2", CategoryNote, PriorityLow, "general", []string{"ui"}); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}

	cp, err := st.CreateCheckpoint(sess.ID, "full", "", "", "", CheckpointFilter{})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if cp.ItemCount != 2 {
		t.Fatalf("expected item_count=2, got %d", cp.ItemCount)
	}

	other, err := st.CreateSession("other", "", "main", "general", "/repo/app")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	restored, err := st.RestoreCheckpoint(cp.ID, "full", other.ID, nil, nil)
	if err != nil {
		t.Fatalf("RestoreCheckpoint: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected 2 restored items, got %d", len(restored))
	}

	// Restore again to simulate a collision: overwrite policy per spec.
	if _, err := st.SaveContextItem(other.ID, "k1", "mutated", CategoryNote, PriorityLow, "general", nil); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	restored2, err := st.RestoreCheckpoint(cp.ID, "full", other.ID, nil, nil)
	if err != nil {
		t.Fatalf("RestoreCheckpoint (collision): %v", err)
	}
	for _, it := range restored2 {
		if it.Key == "k1" && it.Value != "v1" {
			t.Errorf("expected restore to overwrite collided key, got %q", it.Value)
		}
	}
}

func TestCheckpointRestoreRequiresNameVerification(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	cp, err := st.CreateCheckpoint(sess.ID, "v1", "", "", "", CheckpointFilter{})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	_, err = st.RestoreCheckpoint(cp.ID, "wrong", sess.ID, nil, nil)
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindValidation {
		t.Fatalf("expected Validation on name mismatch, got %v", err)
	}
}

func TestSplitCheckpointByTags(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	for i := 0; i < 4; i++ {
		if _, err := st.SaveContextItem(sess.ID, fmtKey("auth", i), "v", "", "", "", []string{"auth"}); err != nil {
			t.Fatalf("SaveContextItem: %v", err)
		}
	}
	for i := 0; i < 6; i++ {
		if _, err := st.SaveContextItem(sess.ID, fmtKey("ui", i), "v", "", "", "", []string{"ui"}); err != nil {
			t.Fatalf("SaveContextItem: %v", err)
		}
	}

	cp, err := st.CreateCheckpoint(sess.ID, "v1", "", "", "", CheckpointFilter{})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if cp.ItemCount != 10 {
		t.Fatalf("expected 10 items, got %d", cp.ItemCount)
	}

	results, warnings, err := st.SplitCheckpoint(cp.ID, "v1", []CheckpointSplitSpec{
		{Name: "auth", IncludeTags: []string{"auth"}},
		{Name: "ui", IncludeTags: []string{"ui"}},
	})
	if err != nil {
		t.Fatalf("SplitCheckpoint: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
	if len(results) != 2 || results[0].ItemCount != 4 || results[1].ItemCount != 6 {
		t.Fatalf("expected splits of 4 and 6, got %+v", results)
	}
}

func TestSplitCheckpointRequiresFilter(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	cp, err := st.CreateCheckpoint(sess.ID, "v1", "", "", "", CheckpointFilter{})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	_, _, err = st.SplitCheckpoint(cp.ID, "v1", []CheckpointSplitSpec{{Name: "no-filter"}})
	se, ok := AsStoreError(err)
	if !ok || se.Kind != KindValidation {
		t.Fatalf("expected Validation for filterless split, got %v", err)
	}
}

func TestEnsureVectorDimRecreateResetsEmbeddings(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	item, err := st.SaveContextItem(sess.ID, "k", "v", "", "", "", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if err := st.UpsertChunks(item.ID, "local", "m1", []VectorChunkInput{{ChunkIndex: 0, Embedding: make([]float32, 384)}}); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	recreated, err := st.EnsureVectorDim(768)
	if err != nil {
		t.Fatalf("EnsureVectorDim: %v", err)
	}
	if !recreated {
		t.Fatalf("expected dimension change to report recreated=true")
	}

	after, err := st.GetContextItemByID(item.ID)
	if err != nil {
		t.Fatalf("GetContextItemByID: %v", err)
	}
	if after.EmbeddingStatus != EmbeddingNone {
		t.Errorf("expected embedding status reset to none, got %s", after.EmbeddingStatus)
	}

	// Same dimension again is a no-op.
	recreatedAgain, err := st.EnsureVectorDim(768)
	if err != nil {
		t.Fatalf("EnsureVectorDim (no-op): %v", err)
	}
	if recreatedAgain {
		t.Errorf("expected no-op when dimension unchanged")
	}
}

func TestSearchRanksByCosineSimilarityAndFiltersBySession(t *testing.T) {
	st := newTestStore(t)
	mustProject(t, st, "/repo/app", "app")
	sess := mustSession(t, st, "/repo/app")
	itemA, err := st.SaveContextItem(sess.ID, "a", "exact match", "", "", "", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	itemB, err := st.SaveContextItem(sess.ID, "b", "orthogonal", "", "", "", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if err := st.UpsertChunks(itemA.ID, "local", "m1", []VectorChunkInput{{ChunkIndex: 0, Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("UpsertChunks a: %v", err)
	}
	if err := st.UpsertChunks(itemB.ID, "local", "m1", []VectorChunkInput{{ChunkIndex: 0, Embedding: []float32{0, 1, 0}}}); err != nil {
		t.Fatalf("UpsertChunks b: %v", err)
	}

	matches, err := st.Search([]float32{1, 0, 0}, sess.ID, 0.5, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ItemID != itemA.ID {
		t.Fatalf("expected only the exact match above threshold, got %+v", matches)
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"auth-*", "auth-login", true},
		{"auth-*", "ui-button", false},
		{"*", "anything", true},
		{"exact", "exact", true},
		{"exact", "not-exact", false},
		{"*-suffix", "k-suffix", true},
	}
	for _, c := range cases {
		if got := globMatch(c.pattern, c.s); got != c.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func fmtKey(prefix string, i int) string {
	digits := "0123456789"
	return prefix + "-" + string(digits[i])
}
