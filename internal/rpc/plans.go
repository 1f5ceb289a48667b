package rpc

import "github.com/savecontext/savecontext/internal/store"

func registerPlanTools(reg *Registry, s *store.Store) {
	reg.Register(ToolDefinition{
		Name:        "plan_create",
		Description: "Create a markdown plan scoped to a project.",
		Parameters: map[string]ParameterDef{
			"project_path":     {Type: "string", Description: "project path", Required: true},
			"title":            {Type: "string", Description: "plan title", Required: true},
			"content":          {Type: "string", Description: "markdown content", Required: true},
			"success_criteria": {Type: "string", Description: "success criteria"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			title, err := requireString(params, "title")
			if err != nil {
				return errEnvelope(err)
			}
			content, err := requireString(params, "content")
			if err != nil {
				return errEnvelope(err)
			}
			plan, err := s.CreatePlan(projectPath, title, content, getString(params, "success_criteria"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(plan)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "plan_get",
		Description: "Fetch a plan by id.",
		Parameters: map[string]ParameterDef{
			"id": {Type: "string", Description: "plan id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			plan, err := s.GetPlan(id)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(plan)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "plan_list",
		Description: "List plans for a project.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"status":       {Type: "string", Description: "draft|active|completed"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			plans, err := s.ListPlans(projectPath, store.PlanStatus(getString(params, "status")))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(plans)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "plan_update",
		Description: "Partially update a plan, optionally moving it (and its issues) to a new project.",
		Parameters: map[string]ParameterDef{
			"id":               {Type: "string", Description: "plan id", Required: true},
			"title":            {Type: "string", Description: "new title"},
			"content":          {Type: "string", Description: "new content"},
			"success_criteria": {Type: "string", Description: "new success criteria"},
			"status":           {Type: "string", Description: "draft|active|completed"},
			"project_path":     {Type: "string", Description: "move plan (and its issues) to this project"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			var status *store.PlanStatus
			if v := getString(params, "status"); v != "" {
				st := store.PlanStatus(v)
				status = &st
			}
			plan, err := s.UpdatePlan(id, getStringPtr(params, "title"), getStringPtr(params, "content"),
				getStringPtr(params, "success_criteria"), status, getString(params, "project_path"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(plan)
		},
	})
}
