// Package transport implements the stdio line-framed JSON-RPC-like
// transport the tool-call RPC surface rides over. Per spec.md §1 this
// framing is "assumed provided by a library" in the target deployment;
// this package is that library's role, grounded on the same
// initialize/tools-list/tools-call shape used across the retrieved
// example servers.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/savecontext/savecontext/internal/agentbind"
	"github.com/savecontext/savecontext/internal/rpc"
)

// Request is one inbound JSON-RPC-shaped line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one outbound line mirroring Request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the outer JSON-RPC envelope error (malformed request, unknown
// method) — distinct from rpc.Envelope.Error, which carries domain
// failures from a successfully dispatched tool call.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	errParse         = -32700
	errMethodNotFound = -32601
	errInvalidParams  = -32602
)

type initializeParams struct {
	ClientInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Server reads JSON-RPC requests from r and writes responses to w, one
// line each, dispatching tools/call into an rpc.Server. Each connection
// gets its own agent identity resolved lazily on the first request that
// carries project_path/branch/provider (normally session_start).
type Server struct {
	RPC    *rpc.Server
	Logger *log.Logger
}

// Serve blocks reading newline-delimited requests from r until r is
// exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 10<<20)
	enc := json.NewEncoder(w)

	var agentID string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp, newAgentID := s.handle(line, agentID)
		if newAgentID != "" {
			agentID = newAgentID
		}
		if resp == nil {
			continue // notification, no reply expected
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading request stream: %w", err)
	}
	return nil
}

func (s *Server) handle(line []byte, agentID string) (*Response, string) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{JSONRPC: "2.0", Error: &RPCError{Code: errParse, Message: "parse error"}}, ""
	}
	if req.ID == nil {
		return nil, "" // notification
	}

	switch req.Method {
	case "initialize":
		var p initializeParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return errResponse(req.ID, errInvalidParams, "invalid initialize params"), ""
			}
		}
		derivedAgentID := agentbind.DeriveAgentID("", "", agentbind.NormalizeProvider(p.ClientInfo.Name))
		result := s.RPC.Initialize(derivedAgentID, p.ClientInfo.Name, p.ClientInfo.Version)
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, derivedAgentID

	case "tools/list":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": s.RPC.ToolsList()}}, ""

	case "tools/call":
		var p toolsCallParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "invalid tools/call params"), ""
		}
		env := s.RPC.Execute(agentID, p.Name, p.Arguments)
		body, _ := json.Marshal(env)
		result := map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": string(body)}},
		}
		// session_start is the one call that establishes this connection's
		// agent identity; every later call on the connection reuses it.
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}, agentIDFromSessionStart(p.Name, env)

	default:
		return errResponse(req.ID, errMethodNotFound, "unknown method: "+req.Method), ""
	}
}

func errResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

func agentIDFromSessionStart(toolName string, env rpc.Envelope) string {
	if toolName != "session_start" || !env.Success {
		return ""
	}
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := data["agent_id"].(string)
	return id
}
