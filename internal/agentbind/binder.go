package agentbind

import (
	"fmt"

	"github.com/savecontext/savecontext/internal/store"
)

// Binder implements the session-start/resume algorithm over a Store.
type Binder struct {
	store *store.Store
}

func New(s *store.Store) *Binder {
	return &Binder{store: s}
}

// StartRequest is the input to Start. ProjectPath must already be resolved
// to a canonical absolute path by the caller (the RPC layer resolves "."
// against the process cwd before calling in).
type StartRequest struct {
	ProjectPath      string
	Branch           string
	RequestedName    string
	RequestedChannel string
	RawProvider      string
	ForceNew         bool
}

// StartResult reports what Start actually did.
type StartResult struct {
	Session   *store.Session
	AgentID   string
	Resumed   bool
	PathAdded bool
	Warning   string
}

// Start resolves an agent identity and either resumes its current active
// session (attaching the caller's project path if new) or creates a fresh
// one, per spec.md §4.3.
func (b *Binder) Start(req StartRequest) (*StartResult, error) {
	if req.ProjectPath == "" {
		return nil, store.Validation("project_path is required")
	}
	if _, err := b.store.GetProject(req.ProjectPath); err != nil {
		return nil, err
	}

	provider := NormalizeProvider(req.RawProvider)
	agentID := DeriveAgentID(req.ProjectPath, req.Branch, provider)

	if req.ForceNew {
		if agent, err := b.store.GetAgent(agentID); err == nil && agent.CurrentSessionID != "" {
			if cur, err := b.store.GetSession(agent.CurrentSessionID); err == nil && cur.Status == store.SessionActive {
				if err := b.store.PauseSession(cur.ID); err != nil {
					return nil, err
				}
			}
		}
		return b.createAndBind(req, agentID, provider)
	}

	agent, err := b.store.GetAgent(agentID)
	if err != nil {
		if se, ok := store.AsStoreError(err); !ok || se.Kind != store.KindNotFound {
			return nil, err
		}
	}
	if agent != nil && agent.CurrentSessionID != "" {
		cur, err := b.store.GetSession(agent.CurrentSessionID)
		if err == nil && cur.Status == store.SessionActive {
			return b.resume(req, agentID, provider, cur)
		}
	}

	return b.createAndBind(req, agentID, provider)
}

func (b *Binder) resume(req StartRequest, agentID, provider string, cur *store.Session) (*StartResult, error) {
	attached, err := b.store.SessionProjects(cur.ID)
	if err != nil {
		return nil, err
	}
	pathAdded := true
	for _, sp := range attached {
		if sp.ProjectPath == req.ProjectPath {
			pathAdded = false
			break
		}
	}
	if pathAdded {
		if err := b.store.AddSessionPath(cur.ID, req.ProjectPath); err != nil {
			return nil, err
		}
	}
	if err := b.store.UpsertAgentBinding(agentID, cur.ID, req.ProjectPath, req.Branch, provider); err != nil {
		return nil, err
	}

	result := &StartResult{Session: cur, AgentID: agentID, Resumed: true, PathAdded: pathAdded}
	if req.RequestedName != "" && req.RequestedName != cur.Name {
		result.Warning = fmt.Sprintf("resumed existing session %q; requested name %q was ignored", cur.Name, req.RequestedName)
	}
	return result, nil
}

func (b *Binder) createAndBind(req StartRequest, agentID, provider string) (*StartResult, error) {
	name := req.RequestedName
	if name == "" {
		name = "session"
	}
	channel := req.RequestedChannel
	if channel == "" {
		channel = DeriveChannelFromBranch(req.Branch, req.RequestedName)
	} else {
		channel = NormalizeChannel(channel)
	}

	sess, err := b.store.CreateSession(name, "", req.Branch, channel, req.ProjectPath)
	if err != nil {
		return nil, err
	}
	if err := b.store.UpsertAgentBinding(agentID, sess.ID, req.ProjectPath, req.Branch, provider); err != nil {
		return nil, err
	}
	return &StartResult{Session: sess, AgentID: agentID, Resumed: false, PathAdded: false}, nil
}
