package rpc

import (
	"sync"

	"github.com/savecontext/savecontext/internal/agentbind"
)

// ClientInfo is what the RPC handshake learns about the calling tool.
type ClientInfo struct {
	Name     string
	Version  string
	Provider string // normalized against the curated table
}

// ClientRegistry remembers client info per agent connection, reduced from
// the teacher's per-connection bookkeeping to just "remember name/version
// per agent" since no SSE transport is built here.
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[string]ClientInfo
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]ClientInfo)}
}

// Capture records the handshake-reported name/version for agentID and
// returns the normalized provider derived from it.
func (c *ClientRegistry) Capture(agentID, name, version string) ClientInfo {
	info := ClientInfo{Name: name, Version: version, Provider: agentbind.NormalizeProvider(name)}
	c.mu.Lock()
	c.clients[agentID] = info
	c.mu.Unlock()
	return info
}

func (c *ClientRegistry) Get(agentID string) (ClientInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.clients[agentID]
	return info, ok
}
