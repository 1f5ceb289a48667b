// Package httpapi exposes the read/write HTTP API the dashboard UI (out of
// scope — §1) consumes. It hangs off the same domain services and the
// same {success,data?,message?,error?} envelope the stdio tool surface
// uses, just behind gorilla/mux routes instead of tools/call.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/savecontext/savecontext/internal/rpc"
	"github.com/savecontext/savecontext/internal/store"
)

// Server wraps an *rpc.Server's tool registry behind HTTP routes, so the
// dashboard and the stdio agents share one service layer and one envelope
// shape.
type Server struct {
	RPC    *rpc.Server
	Store  *store.Store
	router *mux.Router
}

// New builds the router. agentID scopes every request the same way a
// stdio connection's bound identity does — the dashboard authenticates
// separately (out of scope) and passes its resolved agent id per request.
func New(rpcSrv *rpc.Server, s *store.Store) *Server {
	srv := &Server{RPC: rpcSrv, Store: s}
	srv.router = mux.NewRouter()
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/projects", s.handleListProjects).Methods("GET")
	api.HandleFunc("/projects/{path:.*}", s.handleGetProject).Methods("GET")

	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}/context", s.handleListContext).Methods("GET")
	api.HandleFunc("/sessions/{id}/checkpoints", s.handleListCheckpoints).Methods("GET")

	api.HandleFunc("/issues", s.handleListIssues).Methods("GET")
	api.HandleFunc("/plans", s.handleListPlans).Methods("GET")

	api.HandleFunc("/tools/{name}", s.handleToolCall).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Store.ListProjects()
	writeResult(w, projects, err)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	project, err := s.Store.GetProject("/" + path)
	writeResult(w, project, err)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	f := store.SessionListFilter{
		ProjectPath: r.URL.Query().Get("project_path"),
		Search:      r.URL.Query().Get("search"),
		Status:      store.SessionStatus(r.URL.Query().Get("status")),
	}
	sessions, err := s.Store.ListSessions(f)
	writeResult(w, sessions, err)
}

func (s *Server) handleListContext(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	items, err := s.Store.ListContextItems(sessionID, store.ContextItemListFilter{
		Category: store.ItemCategory(r.URL.Query().Get("category")),
		Channel:  r.URL.Query().Get("channel"),
	})
	writeResult(w, items, err)
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	summaries, total, err := s.Store.ListCheckpoints(sessionID, 0)
	writeResult(w, map[string]interface{}{"checkpoints": summaries, "total": total}, err)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.Store.ListIssues(store.IssueListFilter{
		ProjectPath: r.URL.Query().Get("project_path"),
		Status:      store.IssueStatus(r.URL.Query().Get("status")),
	})
	writeResult(w, issues, err)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Store.ListPlans(r.URL.Query().Get("project_path"), store.PlanStatus(r.URL.Query().Get("status")))
	writeResult(w, plans, err)
}

// handleToolCall lets the dashboard invoke any registered tool by name,
// reusing the exact same dispatch and verification rules agents get over
// stdio — the one place the HTTP surface gets real write access.
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	agentID := r.Header.Get("X-Savecontext-Agent-Id")
	if agentID == "" {
		writeEnvelope(w, rpc.Envelope{Success: false, Error: &rpc.EnvError{Code: "validation", Message: "X-Savecontext-Agent-Id header is required"}})
		return
	}

	var params map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&params)
	}

	env := s.RPC.Execute(agentID, name, params)
	writeEnvelope(w, env)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResult(w, map[string]interface{}{"status": "ok"}, nil)
}

func writeResult(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		se, ok := store.AsStoreError(err)
		code := "internal"
		if ok {
			code = string(se.Kind)
		}
		writeEnvelope(w, rpc.Envelope{Success: false, Error: &rpc.EnvError{Code: code, Message: err.Error()}})
		return
	}
	writeEnvelope(w, rpc.Envelope{Success: true, Data: data})
}

func writeEnvelope(w http.ResponseWriter, env rpc.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if !env.Success {
		w.WriteHeader(http.StatusBadRequest)
	}
	_ = json.NewEncoder(w).Encode(env)
}
