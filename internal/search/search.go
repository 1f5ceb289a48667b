// Package search implements the hybrid semantic/keyword search pipeline:
// embed-and-rank when a provider is available, falling back to a scored
// keyword scan otherwise.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/savecontext/savecontext/internal/embedding"
	"github.com/savecontext/savecontext/internal/store"
)

type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
)

// Filters narrows which ContextItems are eligible results.
type Filters struct {
	Category store.ItemCategory
	Priority store.ItemPriority
	Channel  string
}

func (f Filters) matches(item *store.ContextItem) bool {
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Priority != "" && item.Priority != f.Priority {
		return false
	}
	if f.Channel != "" && item.Channel != f.Channel {
		return false
	}
	return true
}

// Request is the input to Search.
type Request struct {
	Query       string
	SessionID   string // required for keyword mode; optional for semantic
	AllSessions bool
	Filters     Filters
	Limit       int
	Threshold   float64 // cosine similarity, per the pinned design decision
}

// Match is one ranked result.
type Match struct {
	Item  *store.ContextItem
	Score float64
}

// Result is the full outcome of a Search call.
type Result struct {
	Mode    Mode
	Shape   Shape
	Matches []Match
	Tip     string
}

// Service runs hybrid search over a Store, using provider when available.
type Service struct {
	store    *store.Store
	provider embedding.Provider
}

func New(s *store.Store, provider embedding.Provider) *Service {
	return &Service{store: s, provider: provider}
}

// SetProvider swaps the active embedding provider, used after a config
// change or on startup detection.
func (svc *Service) SetProvider(p embedding.Provider) { svc.provider = p }

// Search runs semantic search when a provider is ready, falling back to
// keyword search otherwise or when semantic returns nothing.
func (svc *Service) Search(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, store.Validation("query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	shape := ClassifyShape(req.Query)

	if svc.provider != nil && svc.provider.IsAvailable(ctx) {
		matches, err := svc.semantic(ctx, req, limit, threshold)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return &Result{Mode: ModeSemantic, Shape: shape, Matches: matches}, nil
		}
	}

	if req.SessionID == "" {
		return &Result{Mode: ModeKeyword, Shape: shape, Matches: nil,
			Tip: "keyword search requires a session scope"}, nil
	}
	matches, err := svc.keyword(req, limit)
	if err != nil {
		return nil, err
	}
	return &Result{
		Mode:    ModeKeyword,
		Shape:   shape,
		Matches: matches,
		Tip:     "set up a local embedding provider for better semantic results",
	}, nil
}

func (svc *Service) semantic(ctx context.Context, req Request, limit int, threshold float64) ([]Match, error) {
	vec, err := svc.provider.Generate(ctx, req.Query)
	if err != nil {
		return nil, store.Unavailable("embedding provider generate failed: %v", err)
	}

	scope := req.SessionID
	if req.AllSessions {
		scope = ""
	}
	hits, err := svc.store.Search(vec, scope, threshold, limit*4) // over-fetch, filters cut below
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, h := range hits {
		item, err := svc.store.GetContextItemByID(h.ItemID)
		if err != nil {
			continue
		}
		if !req.Filters.matches(item) {
			continue
		}
		out = append(out, Match{Item: item, Score: h.Similarity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (svc *Service) keyword(req Request, limit int) ([]Match, error) {
	items, err := svc.store.ListContextItems(req.SessionID, store.ContextItemListFilter{Limit: 10000})
	if err != nil {
		return nil, err
	}

	tokens := tokenize(req.Query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var out []Match
	for _, item := range items {
		if !req.Filters.matches(item) {
			continue
		}
		score := keywordScore(item, tokens)
		if score == 0 {
			continue
		}
		out = append(out, Match{Item: item, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenize lower-cases and splits on whitespace, dropping tokens of length
// 2 or less (too common to be discriminating).
func tokenize(s string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// keywordScore weights a value hit twice as much as a key hit, per the
// pinned scoring formula: 2 × value_hits + key_hits.
func keywordScore(item *store.ContextItem, tokens []string) float64 {
	key := strings.ToLower(item.Key)
	value := strings.ToLower(item.Value)

	var valueHits, keyHits int
	for _, t := range tokens {
		valueHits += strings.Count(value, t)
		keyHits += strings.Count(key, t)
	}
	return float64(2*valueHits + keyHits)
}
