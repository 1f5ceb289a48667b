package rpc

import (
	"github.com/savecontext/savecontext/internal/agentbind"
	"github.com/savecontext/savecontext/internal/store"
)

func registerSessionTools(reg *Registry, s *store.Store, binder *agentbind.Binder) {
	reg.Register(ToolDefinition{
		Name:        "session_start",
		Description: "Start or resume a session for the calling agent identity.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "canonical project path", Required: true},
			"branch":       {Type: "string", Description: "git branch"},
			"name":         {Type: "string", Description: "requested session name"},
			"channel":      {Type: "string", Description: "requested channel"},
			"provider":     {Type: "string", Description: "calling tool identity, e.g. claude-code"},
			"force_new":    {Type: "boolean", Description: "start a brand new session even if one is active"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			req := agentbind.StartRequest{
				ProjectPath:      getString(params, "project_path"),
				Branch:           getString(params, "branch"),
				RequestedName:    getString(params, "name"),
				RequestedChannel: getString(params, "channel"),
				RawProvider:      getString(params, "provider"),
				ForceNew:         getBool(params, "force_new"),
			}
			result, err := binder.Start(req)
			if err != nil {
				return errEnvelope(err)
			}
			data := map[string]interface{}{
				"session":    result.Session,
				"agent_id":   result.AgentID,
				"resumed":    result.Resumed,
				"path_added": result.PathAdded,
			}
			if result.Warning != "" {
				return okMessage(result.Warning, data)
			}
			return ok(data)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_status",
		Description: "Get the calling agent's current bound session.",
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			sess, err := s.GetSession(sessionID)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(sess)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_rename",
		Description: "Rename a session.",
		Parameters: map[string]ParameterDef{
			"session_id":   {Type: "string", Description: "session id", Required: true},
			"current_name": {Type: "string", Description: "session's current name, for verification", Required: true},
			"new_name":     {Type: "string", Description: "new name", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			newName, err := requireString(params, "new_name")
			if err != nil {
				return errEnvelope(err)
			}
			sess, err := s.RenameSession(id, currentName, newName)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(sess)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_pause",
		Description: "Pause a session.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.PauseSession(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_resume",
		Description: "Resume a paused session.",
		Parameters: map[string]ParameterDef{
			"session_id":   {Type: "string", Description: "session id", Required: true},
			"current_name": {Type: "string", Description: "session's current name, for verification", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			sess, err := s.ResumeSession(id, currentName)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(sess)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_switch",
		Description: "Pause the agent's current session and resume a different one.",
		Parameters: map[string]ParameterDef{
			"target_session_id": {Type: "string", Description: "session id to switch to", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			target, err := requireString(params, "target_session_id")
			if err != nil {
				return errEnvelope(err)
			}
			agent, _ := s.GetAgent(agentID)
			currentID := ""
			if agent != nil {
				currentID = agent.CurrentSessionID
			}
			sess, err := s.Switch(currentID, target)
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.UpsertAgentBinding(agentID, sess.ID, sess.ProjectPath, sess.Branch, ""); err != nil {
				return errEnvelope(err)
			}
			return ok(sess)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_end",
		Description: "Mark a session completed.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.EndSession(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_delete",
		Description: "Delete a non-active session.",
		Parameters: map[string]ParameterDef{
			"session_id":   {Type: "string", Description: "session id", Required: true},
			"current_name": {Type: "string", Description: "session's current name, for verification", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			sess, err := s.GetSession(id)
			if err != nil {
				return errEnvelope(err)
			}
			if sess.Name != currentName {
				return errEnvelope(store.Validation("name mismatch: expected %q", sess.Name))
			}
			if err := s.DeleteSession(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_list",
		Description: "List sessions, optionally filtered.",
		Parameters: map[string]ParameterDef{
			"search":       {Type: "string", Description: "name/description substring"},
			"project_path": {Type: "string", Description: "restrict to a project"},
			"status":       {Type: "string", Description: "active|paused|completed", Enum: []string{"active", "paused", "completed"}},
			"limit":        {Type: "number", Description: "max results"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessions, err := s.ListSessions(store.SessionListFilter{
				Search:      getString(params, "search"),
				ProjectPath: getString(params, "project_path"),
				Status:      store.SessionStatus(getString(params, "status")),
				Limit:       getInt(params, "limit", 0),
			})
			if err != nil {
				return errEnvelope(err)
			}
			return ok(sessions)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_add_path",
		Description: "Attach an additional project path to a session.",
		Parameters: map[string]ParameterDef{
			"session_id":   {Type: "string", Description: "session id", Required: true},
			"project_path": {Type: "string", Description: "path to attach", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sid, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			path, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.AddSessionPath(sid, path); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "session_remove_path",
		Description: "Detach a project path from a session.",
		Parameters: map[string]ParameterDef{
			"session_id":   {Type: "string", Description: "session id", Required: true},
			"project_path": {Type: "string", Description: "path to detach", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sid, err := requireString(params, "session_id")
			if err != nil {
				return errEnvelope(err)
			}
			path, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.RemoveSessionPath(sid, path); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})
}
