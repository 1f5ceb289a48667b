package rpc

import "github.com/savecontext/savecontext/internal/store"

func registerProjectTools(reg *Registry, s *store.Store) {
	reg.Register(ToolDefinition{
		Name:        "project_create",
		Description: "Register a new project at a canonical path.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "canonical absolute path", Required: true},
			"name":         {Type: "string", Description: "project name", Required: true},
			"description":  {Type: "string", Description: "project description"},
			"issue_prefix": {Type: "string", Description: "short id prefix, defaults to first 4 letters of name"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			path, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			name, err := requireString(params, "name")
			if err != nil {
				return errEnvelope(err)
			}
			p, err := s.CreateProject(path, name, getString(params, "description"), getString(params, "issue_prefix"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(p)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "project_get",
		Description: "Fetch a project by path.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "canonical absolute path", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			path, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			p, err := s.GetProject(path)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(p)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "project_list",
		Description: "List all known projects.",
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projects, err := s.ListProjects()
			if err != nil {
				return errEnvelope(err)
			}
			return ok(projects)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "project_delete",
		Description: "Delete a project; its issues, plans, and memory cascade.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "canonical absolute path", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			path, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.DeleteProject(path); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})
}
