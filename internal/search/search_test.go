package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/savecontext/savecontext/internal/store"
)

type fakeProvider struct {
	available bool
	vectors   map[string][]float32
	dims      int
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) Model() string      { return "fake-model" }
func (f *fakeProvider) Dimensions() int    { return f.dims }
func (f *fakeProvider) MaxChars() int      { return 2000 }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return f.available }
func (f *fakeProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dims), nil
}

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

func TestSearchSemanticModeRanksByEmbeddingSimilarity(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	sess, err := st.CreateSession("s", "", "main", "general", "/repo/app")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	item, err := st.SaveContextItem(sess.ID, "auth-decision", "use JWT for sessions", store.CategoryDecision, store.PriorityHigh, "general", nil)
	if err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if err := st.UpsertChunks(item.ID, "fake", "fake-model", []store.VectorChunkInput{{ChunkIndex: 0, Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	provider := &fakeProvider{available: true, dims: 3, vectors: map[string][]float32{"jwt auth": {1, 0, 0}}}
	svc := New(st, provider)

	result, err := svc.Search(context.Background(), Request{Query: "jwt auth", SessionID: sess.ID, Threshold: 0.5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Mode != ModeSemantic {
		t.Fatalf("expected semantic mode, got %s", result.Mode)
	}
	if len(result.Matches) != 1 || result.Matches[0].Item.ID != item.ID {
		t.Fatalf("expected the embedded item to match, got %+v", result.Matches)
	}
}

func TestSearchFallsBackToKeywordWhenNoProvider(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	sess, err := st.CreateSession("s", "", "main", "general", "/repo/app")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := st.SaveContextItem(sess.ID, "db-choice", "we picked postgres for storage", "", "", "", nil); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}
	if _, err := st.SaveContextItem(sess.ID, "unrelated", "nothing to see here", "", "", "", nil); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}

	svc := New(st, nil)
	result, err := svc.Search(context.Background(), Request{Query: "postgres storage", SessionID: sess.ID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Mode != ModeKeyword {
		t.Fatalf("expected keyword fallback, got %s", result.Mode)
	}
	if result.Tip == "" {
		t.Errorf("expected a tip suggesting local embedding setup")
	}
	if len(result.Matches) != 1 || result.Matches[0].Item.Key != "db-choice" {
		t.Fatalf("expected db-choice to match on keyword score, got %+v", result.Matches)
	}
}

func TestSearchKeywordModeRequiresSessionScope(t *testing.T) {
	st := newTestStore(t)
	svc := New(st, nil)
	result, err := svc.Search(context.Background(), Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 0 || result.Tip == "" {
		t.Fatalf("expected empty result with a scope tip, got %+v", result)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	st := newTestStore(t)
	svc := New(st, nil)
	_, err := svc.Search(context.Background(), Request{Query: "   "})
	se, ok := store.AsStoreError(err)
	if !ok || se.Kind != store.KindValidation {
		t.Fatalf("expected Validation for empty query, got %v", err)
	}
}

func TestSearchSemanticFallsBackToKeywordWhenNoHitsAboveThreshold(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateProject("/repo/app", "app", "", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	sess, err := st.CreateSession("s", "", "main", "general", "/repo/app")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := st.SaveContextItem(sess.ID, "note-keyword", "postgres note here", "", "", "", nil); err != nil {
		t.Fatalf("SaveContextItem: %v", err)
	}

	// Provider is available but has no stored chunks at all, so the
	// semantic pass returns zero matches and the keyword path must fire.
	provider := &fakeProvider{available: true, dims: 3}
	svc := New(st, provider)
	result, err := svc.Search(context.Background(), Request{Query: "postgres", SessionID: sess.ID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Mode != ModeKeyword {
		t.Fatalf("expected fallback to keyword mode, got %s", result.Mode)
	}
}
