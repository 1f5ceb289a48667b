package rpc

import (
	"fmt"

	"github.com/savecontext/savecontext/internal/agentbind"
	"github.com/savecontext/savecontext/internal/config"
	"github.com/savecontext/savecontext/internal/embedding"
	"github.com/savecontext/savecontext/internal/search"
	"github.com/savecontext/savecontext/internal/statuscache"
	"github.com/savecontext/savecontext/internal/store"
	"github.com/savecontext/savecontext/internal/syncqueue"
)

// Server is the re-architected process-wide singleton from spec.md §9: a
// value passed by reference into every handler instead of global state.
// Its only mutable, concurrently-touched field is ClientRegistry, which
// guards itself with its own mutex.
type Server struct {
	Store       *store.Store
	Binder      *agentbind.Binder
	Pool        *embedding.Pool
	Search      *search.Service
	SyncQueue   *syncqueue.Queue // nil when no remote is configured
	StatusCache *statuscache.Cache
	Clients     *ClientRegistry

	CompactionMode      config.CompactionMode
	CompactionThreshold int

	registry *Registry
}

// NewServer builds the Server and registers every tool in the RPC surface.
func NewServer(s *store.Store, binder *agentbind.Binder, pool *embedding.Pool,
	searchSvc *search.Service, queue *syncqueue.Queue, cache *statuscache.Cache,
	cfg *config.Config) *Server {

	srv := &Server{
		Store:               s,
		Binder:              binder,
		Pool:                pool,
		Search:              searchSvc,
		SyncQueue:           queue,
		StatusCache:         cache,
		Clients:             NewClientRegistry(),
		CompactionMode:      config.EffectiveCompactionMode(cfg),
		CompactionThreshold: config.EffectiveCompactionThreshold(cfg),
	}

	reg := NewRegistry()
	registerSessionTools(reg, s, binder)
	registerContextTools(reg, s, pool)
	registerCheckpointTools(reg, s)
	registerIssueTools(reg, s)
	registerPlanTools(reg, s)
	registerMemoryTools(reg, s)
	registerProjectTools(reg, s)
	registerSearchTools(reg, s, searchSvc)
	registerCompactionTools(reg, s, pool)
	registerOpsTools(reg, s, queue, pool)
	srv.registry = reg

	return srv
}

// ToolsList builds the tools/list response body.
func (srv *Server) ToolsList() []map[string]interface{} {
	return srv.registry.List()
}

// HandshakeResult is what Initialize returns to the transport layer for
// the MCP-style `initialize` method.
type HandshakeResult struct {
	AgentID      string `json:"agent_id"`
	Provider     string `json:"provider"`
	Instructions string `json:"instructions"`
}

// Initialize captures the client's self-reported name/version (per
// spec.md §4.7's "client-info capture"), derives the normalized provider
// that feeds agent-id derivation, and returns server instructions
// parameterized by the configured compaction mode/threshold.
func (srv *Server) Initialize(agentID, clientName, clientVersion string) HandshakeResult {
	info := srv.Clients.Capture(agentID, clientName, clientVersion)
	return HandshakeResult{
		AgentID:      agentID,
		Provider:     info.Provider,
		Instructions: srv.instructions(),
	}
}

func (srv *Server) instructions() string {
	base := "This server persists working memory, issues, plans, and checkpoints across conversations. " +
		"Use context_save for anything worth remembering; use session_start once per conversation to bind " +
		"to a project."
	switch srv.CompactionMode {
	case config.CompactionAuto:
		return base + fmt.Sprintf(" When your context usage approaches %d%%, call context_prepare_compaction "+
			"automatically without waiting for the user to ask.", srv.CompactionThreshold)
	case config.CompactionManual:
		return base + " Only call context_prepare_compaction if the user explicitly asks you to checkpoint " +
			"or summarize the session."
	default: // remind
		return base + fmt.Sprintf(" When your context usage approaches %d%%, remind the user that calling "+
			"context_prepare_compaction would checkpoint progress before the window fills.", srv.CompactionThreshold)
	}
}

// Execute runs tool `name` for agentID, then performs the two best-effort
// housekeeping steps every RPC handler follows per spec.md §4.7: touching
// the agent's last_active_at and refreshing its status-line cache entry.
// Both run after the handler so a housekeeping failure never blocks (or
// corrupts the response of) the tool call itself.
func (srv *Server) Execute(agentID, name string, params map[string]interface{}) Envelope {
	env := srv.registry.Execute(name, agentID, params)

	_ = srv.Store.TouchAgent(agentID)
	srv.refreshStatusCache(agentID)

	return env
}

func (srv *Server) refreshStatusCache(agentID string) {
	if srv.StatusCache == nil {
		return
	}
	agent, err := srv.Store.GetAgent(agentID)
	if err != nil {
		return
	}
	snap := statuscache.Snapshot{
		AgentID:     agentID,
		ProjectPath: agent.LastProjectPath,
		UpdatedAt:   agent.LastActiveAt,
	}
	if agent.CurrentSessionID != "" {
		if sess, err := srv.Store.GetSession(agent.CurrentSessionID); err == nil {
			snap.SessionID = sess.ID
			snap.SessionName = sess.Name
			snap.Channel = sess.Channel
			snap.Status = string(sess.Status)
		}
	}
	_ = srv.StatusCache.Refresh(agentID, snap)
}
