package rpc

import "github.com/savecontext/savecontext/internal/store"

func registerIssueTools(reg *Registry, s *store.Store) {
	reg.Register(ToolDefinition{
		Name:        "issue_create",
		Description: "Create an issue scoped to a project.",
		Parameters: map[string]ParameterDef{
			"project_path":      {Type: "string", Description: "project path", Required: true},
			"title":             {Type: "string", Description: "issue title", Required: true},
			"description":       {Type: "string", Description: "short description"},
			"details":           {Type: "string", Description: "long-form details"},
			"priority":          {Type: "number", Description: "0-4, higher is more urgent"},
			"issue_type":        {Type: "string", Description: "task|bug|feature|epic|chore"},
			"parent_id":         {Type: "string", Description: "parent issue id"},
			"plan_id":           {Type: "string", Description: "owning plan id"},
			"created_in_session": {Type: "string", Description: "session id this issue was created in"},
			"labels":            {Type: "array", Description: "labels"},
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
			issue, err := s.CreateIssue(projectPath, title, getString(params, "description"), getString(params, "details"),
				getInt(params, "priority", 2), store.IssueType(getString(params, "issue_type")),
				getString(params, "parent_id"), getString(params, "plan_id"), getString(params, "created_in_session"),
				getStringSlice(params, "labels"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issue)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_update",
		Description: "Partially update an issue.",
		Parameters: map[string]ParameterDef{
			"id":            {Type: "string", Description: "issue id", Required: true},
			"current_title": {Type: "string", Description: "issue's current title, for verification", Required: true},
			"title":         {Type: "string", Description: "new title"},
			"description":   {Type: "string", Description: "new description"},
			"details":       {Type: "string", Description: "new details"},
			"status":        {Type: "string", Description: "open|in_progress|blocked|closed|deferred"},
			"priority":      {Type: "number", Description: "0-4"},
			"issue_type":    {Type: "string", Description: "task|bug|feature|epic|chore"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			currentTitle, err := requireString(params, "current_title")
			if err != nil {
				return errEnvelope(err)
			}
			var status *store.IssueStatus
			if v := getString(params, "status"); v != "" {
				st := store.IssueStatus(v)
				status = &st
			}
			var issueType *store.IssueType
			if v := getString(params, "issue_type"); v != "" {
				it := store.IssueType(v)
				issueType = &it
			}
			issue, err := s.UpdateIssue(id, currentTitle, getStringPtr(params, "title"), getStringPtr(params, "description"),
				getStringPtr(params, "details"), status, getIntPtr(params, "priority"), issueType)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issue)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_list",
		Description: "List issues matching filters.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path"},
			"all_projects": {Type: "boolean", Description: "search across all projects"},
			"status":       {Type: "string", Description: "open|in_progress|blocked|closed|deferred"},
			"priority":     {Type: "number", Description: "exact priority"},
			"min_priority": {Type: "number", Description: "minimum priority"},
			"max_priority": {Type: "number", Description: "maximum priority"},
			"issue_type":   {Type: "string", Description: "task|bug|feature|epic|chore"},
			"labels_all":   {Type: "array", Description: "must have all of these labels"},
			"labels_any":   {Type: "array", Description: "must have any of these labels"},
			"parent_id":    {Type: "string", Description: "filter by parent"},
			"plan_id":      {Type: "string", Description: "filter by plan"},
			"sort_by":      {Type: "string", Description: "priority|createdAt|updatedAt"},
			"ascending":    {Type: "boolean", Description: "sort ascending"},
			"limit":        {Type: "number", Description: "max results"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			issues, err := s.ListIssues(store.IssueListFilter{
				ProjectPath: getString(params, "project_path"),
				AllProjects: getBool(params, "all_projects"),
				Status:      store.IssueStatus(getString(params, "status")),
				Priority:    getIntPtr(params, "priority"),
				MinPriority: getIntPtr(params, "min_priority"),
				MaxPriority: getIntPtr(params, "max_priority"),
				IssueType:   store.IssueType(getString(params, "issue_type")),
				LabelsAll:   getStringSlice(params, "labels_all"),
				LabelsAny:   getStringSlice(params, "labels_any"),
				ParentID:    getString(params, "parent_id"),
				PlanID:      getString(params, "plan_id"),
				SortBy:      getString(params, "sort_by"),
				Ascending:   getBool(params, "ascending"),
				Limit:       getInt(params, "limit", 0),
			})
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issues)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_complete",
		Description: "Close an issue, cascading unblocks and plan completion.",
		Parameters: map[string]ParameterDef{
			"id":                {Type: "string", Description: "issue id", Required: true},
			"closed_in_session": {Type: "string", Description: "session id closing this issue"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			issue, err := s.CompleteIssue(id, agentID, getString(params, "closed_in_session"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issue)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_delete",
		Description: "Delete an issue and its dependency edges.",
		Parameters: map[string]ParameterDef{
			"id":            {Type: "string", Description: "issue id", Required: true},
			"current_title": {Type: "string", Description: "issue's current title, for verification", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			currentTitle, err := requireString(params, "current_title")
			if err != nil {
				return errEnvelope(err)
			}
			issue, err := s.GetIssue(id)
			if err != nil {
				return errEnvelope(err)
			}
			if issue.Title != currentTitle {
				return errEnvelope(store.Validation("name mismatch: expected %q", issue.Title))
			}
			if err := s.DeleteIssue(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_dependency_add",
		Description: "Add a dependency edge between two issues.",
		Parameters: map[string]ParameterDef{
			"issue_id":      {Type: "string", Description: "dependent issue id", Required: true},
			"depends_on_id": {Type: "string", Description: "blocking/related issue id", Required: true},
			"dep_type":      {Type: "string", Description: "blocks|related|parent-child|discovered-from|duplicate-of"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			issueID, err := requireString(params, "issue_id")
			if err != nil {
				return errEnvelope(err)
			}
			dependsOnID, err := requireString(params, "depends_on_id")
			if err != nil {
				return errEnvelope(err)
			}
			depType := store.DepType(getString(params, "dep_type"))
			if depType == "" {
				depType = store.DepBlocks
			}
			if err := s.AddDependency(issueID, dependsOnID, depType); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_dependency_remove",
		Description: "Remove a dependency edge between two issues.",
		Parameters: map[string]ParameterDef{
			"issue_id":      {Type: "string", Description: "dependent issue id", Required: true},
			"depends_on_id": {Type: "string", Description: "blocking/related issue id", Required: true},
			"dep_type":      {Type: "string", Description: "blocks|related|parent-child|discovered-from|duplicate-of", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			issueID, err := requireString(params, "issue_id")
			if err != nil {
				return errEnvelope(err)
			}
			dependsOnID, err := requireString(params, "depends_on_id")
			if err != nil {
				return errEnvelope(err)
			}
			depType, err := requireString(params, "dep_type")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.RemoveDependency(issueID, dependsOnID, store.DepType(depType)); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_label_add",
		Description: "Add a label to an issue.",
		Parameters: map[string]ParameterDef{
			"id":    {Type: "string", Description: "issue id", Required: true},
			"label": {Type: "string", Description: "label", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			label, err := requireString(params, "label")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.AddLabel(id, label); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_label_remove",
		Description: "Remove a label from an issue.",
		Parameters: map[string]ParameterDef{
			"id":    {Type: "string", Description: "issue id", Required: true},
			"label": {Type: "string", Description: "label", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			label, err := requireString(params, "label")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.RemoveLabel(id, label); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_claim",
		Description: "Claim an issue for the calling agent.",
		Parameters: map[string]ParameterDef{
			"id": {Type: "string", Description: "issue id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			issue, err := s.ClaimIssue(id, agentID)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issue)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_release",
		Description: "Release an issue claim, returning it to open.",
		Parameters: map[string]ParameterDef{
			"id": {Type: "string", Description: "issue id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.ReleaseIssue(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_get_ready",
		Description: "List open, unassigned, unblocked issues ordered by priority.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"limit":        {Type: "number", Description: "max results"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			issues, err := s.GetReady(projectPath, getInt(params, "limit", 0))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issues)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_get_next_block",
		Description: "Atomically claim up to count ready issues for the calling agent.",
		Parameters: map[string]ParameterDef{
			"project_path": {Type: "string", Description: "project path", Required: true},
			"count":        {Type: "number", Description: "how many issues to claim"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			issues, err := s.GetNextBlock(projectPath, agentID, getInt(params, "count", 1))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(issues)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "issue_create_batch",
		Description: "Create several issues and dependency edges atomically, supporting $N parent references within the batch.",
		Parameters: map[string]ParameterDef{
			"project_path":       {Type: "string", Description: "project path", Required: true},
			"issues":             {Type: "array", Description: "array of issue specs", Required: true},
			"dependencies":       {Type: "array", Description: "array of {issue_index, depends_on_index, dep_type}"},
			"created_in_session": {Type: "string", Description: "session id these issues were created in"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			projectPath, err := requireString(params, "project_path")
			if err != nil {
				return errEnvelope(err)
			}
			rawIssues, _ := params["issues"].([]interface{})
			if len(rawIssues) == 0 {
				return errEnvelope(store.Validation("issues is required"))
			}
			specs := make([]store.IssueSpec, 0, len(rawIssues))
			for _, raw := range rawIssues {
				m, ok := raw.(map[string]interface{})
				if !ok {
					return errEnvelope(store.Validation("each issue spec must be an object"))
				}
				specs = append(specs, store.IssueSpec{
					Title:       getString(m, "title"),
					Description: getString(m, "description"),
					Details:     getString(m, "details"),
					Priority:    getInt(m, "priority", 2),
					IssueType:   store.IssueType(getString(m, "issue_type")),
					ParentID:    getString(m, "parent_id"),
					PlanID:      getString(m, "plan_id"),
					Labels:      getStringSlice(m, "labels"),
				})
			}
			var deps []store.DependencySpec
			if rawDeps, ok := params["dependencies"].([]interface{}); ok {
				for _, raw := range rawDeps {
					m, ok := raw.(map[string]interface{})
					if !ok {
						return errEnvelope(store.Validation("each dependency spec must be an object"))
					}
					depType := store.DepType(getString(m, "dep_type"))
					if depType == "" {
						depType = store.DepBlocks
					}
					deps = append(deps, store.DependencySpec{
						IssueIndex:     getInt(m, "issue_index", -1),
						DependsOnIndex: getInt(m, "depends_on_index", -1),
						DepType:        depType,
					})
				}
			}
			created, err := s.CreateBatch(projectPath, specs, deps, getString(params, "created_in_session"))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(created)
		},
	})
}
