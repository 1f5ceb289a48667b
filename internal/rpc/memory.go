package rpc

import "github.com/savecontext/savecontext/internal/store"

func registerMemoryTools(reg *Registry, s *store.Store) {
	reg.Register(ToolDefinition{
		Name:        "memory_save",
		Description: "Save or overwrite a project-scoped memory entry.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"key":          {Type: "string", Description: "memory key", Required: true},
			"value":        {Type: "string", Description: "memory value", Required: true},
			"category":     {Type: "string", Description: "command|config|note"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			key, err := requireString(params, "key")
			if err != nil {
				return errEnvelope(err)
			}
			value, err := requireString(params, "value")
			if err != nil {
				return errEnvelope(err)
			}
			m, err := s.SaveMemory(projectPath, key, value, store.MemoryCategory(getString(params, "category")))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(m)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "memory_get",
		Description: "Fetch one memory entry.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"key":          {Type: "string", Description: "memory key", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			key, err := requireString(params, "key")
			if err != nil {
				return errEnvelope(err)
			}
			m, err := s.GetMemory(projectPath, key)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(m)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "memory_list",
		Description: "List memory entries for a project.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"category":     {Type: "string", Description: "command|config|note"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			entries, err := s.ListMemory(projectPath, store.MemoryCategory(getString(params, "category")))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(entries)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "memory_delete",
		Description: "Delete a memory entry.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"key":          {Type: "string", Description: "memory key", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			key, err := requireString(params, "key")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.DeleteMemory(projectPath, key); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})
}
