package rpc

import "github.com/savecontext/savecontext/internal/store"

func registerCheckpointTools(reg *Registry, s *store.Store) {
	reg.Register(ToolDefinition{
		Name:        "checkpoint_create",
		Description: "Snapshot the current session's context items into a named checkpoint.",
		Parameters: map[string]ParameterDef{
			"session_id":         {Type: "string", Description: "session id, defaults to the agent's current session"},
			"name":               {Type: "string", Description: "checkpoint name", Required: true},
			"description":        {Type: "string", Description: "checkpoint description"},
			"git_branch":         {Type: "string", Description: "git branch at capture time"},
			"git_status":         {Type: "string", Description: "git status summary at capture time"},
			"include_tags":       {Type: "array", Description: "only capture items with any of these tags"},
			"include_keys":       {Type: "array", Description: "only capture items whose key matches one of these globs"},
			"include_categories": {Type: "array", Description: "only capture items in these categories"},
			"exclude_tags":       {Type: "array", Description: "exclude items with any of these tags"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			name, err := requireString(params, "name")
			if err != nil {
				return errEnvelope(err)
			}
			cp, err := s.CreateCheckpoint(sessionID, name, getString(params, "description"),
				getString(params, "git_branch"), getString(params, "git_status"),
				checkpointFilterFromParams(params))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(cp)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_get",
		Description: "Fetch a checkpoint and a preview of its highest-priority items.",
		Parameters: map[string]ParameterDef{
			"id": {Type: "string", Description: "checkpoint id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			cp, err := s.GetCheckpoint(id)
			if err != nil {
				return errEnvelope(err)
			}
			preview, err := s.CheckpointPreview(id, getInt(params, "preview_count", 5))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(map[string]interface{}{"checkpoint": cp, "preview": preview})
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_list",
		Description: "List checkpoint summaries for a session.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id, defaults to the agent's current session"},
			"limit":      {Type: "number", Description: "max results"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			summaries, total, err := s.ListCheckpoints(sessionID, getInt(params, "limit", 0))
			if err != nil {
				return errEnvelope(err)
			}
			return ok(map[string]interface{}{"checkpoints": summaries, "total": total})
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_delete",
		Description: "Delete a checkpoint.",
		Parameters: map[string]ParameterDef{
			"id":           {Type: "string", Description: "checkpoint id", Required: true},
			"current_name": {Type: "string", Description: "checkpoint's current name, for verification", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.DeleteCheckpoint(id, currentName); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_add_items",
		Description: "Add context items to an existing checkpoint.",
		Parameters: map[string]ParameterDef{
			"id":       {Type: "string", Description: "checkpoint id", Required: true},
			"item_ids": {Type: "array", Description: "context item ids to add", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			itemIDs := getStringSlice(params, "item_ids")
			if len(itemIDs) == 0 {
				return errEnvelope(store.Validation("item_ids is required"))
			}
			cp, err := s.AddCheckpointItems(id, itemIDs)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(cp)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_remove_items",
		Description: "Remove context items from a checkpoint.",
		Parameters: map[string]ParameterDef{
			"id":       {Type: "string", Description: "checkpoint id", Required: true},
			"item_ids": {Type: "array", Description: "context item ids to remove", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			itemIDs := getStringSlice(params, "item_ids")
			if len(itemIDs) == 0 {
				return errEnvelope(store.Validation("item_ids is required"))
			}
			cp, err := s.RemoveCheckpointItems(id, itemIDs)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(cp)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_restore",
		Description: "Restore a checkpoint's items into a target session, overwriting on key collision.",
		Parameters: map[string]ParameterDef{
			"id":                 {Type: "string", Description: "checkpoint id", Required: true},
			"current_name":       {Type: "string", Description: "checkpoint's current name, for verification", Required: true},
			"target_session_id":  {Type: "string", Description: "session to restore into, defaults to the agent's current session"},
			"restore_tags":       {Type: "array", Description: "only restore items with any of these tags"},
			"restore_categories": {Type: "array", Description: "only restore items in these categories"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			targetSessionID := getString(params, "target_session_id")
			if targetSessionID == "" {
				targetSessionID, err = resolveSessionID(s, agentID, params)
				if err != nil {
					return errEnvelope(err)
				}
			}
			var categories []store.ItemCategory
			for _, c := range getStringSlice(params, "restore_categories") {
				categories = append(categories, store.ItemCategory(c))
			}
			restored, err := s.RestoreCheckpoint(id, currentName, targetSessionID, getStringSlice(params, "restore_tags"), categories)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(restored)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "checkpoint_split",
		Description: "Split a checkpoint into several new checkpoints, each filtered by tags or categories.",
		Parameters: map[string]ParameterDef{
			"id":           {Type: "string", Description: "source checkpoint id", Required: true},
			"current_name": {Type: "string", Description: "checkpoint's current name, for verification", Required: true},
			"splits":       {Type: "array", Description: "array of {name, description, include_tags, include_categories}", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			currentName, err := requireString(params, "current_name")
			if err != nil {
				return errEnvelope(err)
			}
			rawSplits, _ := params["splits"].([]interface{})
			if len(rawSplits) == 0 {
				return errEnvelope(store.Validation("splits is required"))
			}
			specs := make([]store.CheckpointSplitSpec, 0, len(rawSplits))
			for _, raw := range rawSplits {
				m, ok := raw.(map[string]interface{})
				if !ok {
					return errEnvelope(store.Validation("each split must be an object"))
				}
				var categories []store.ItemCategory
				for _, c := range getStringSlice(m, "include_categories") {
					categories = append(categories, store.ItemCategory(c))
				}
				specs = append(specs, store.CheckpointSplitSpec{
					Name:              getString(m, "name"),
					Description:       getString(m, "description"),
					IncludeTags:       getStringSlice(m, "include_tags"),
					IncludeCategories: categories,
				})
			}
			results, warnings, err := s.SplitCheckpoint(id, currentName, specs)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(map[string]interface{}{"checkpoints": results, "warnings": warnings})
		},
	})
}

func checkpointFilterFromParams(params map[string]interface{}) store.CheckpointFilter {
	var categories []store.ItemCategory
	for _, c := range getStringSlice(params, "include_categories") {
		categories = append(categories, store.ItemCategory(c))
	}
	return store.CheckpointFilter{
		IncludeTags:       getStringSlice(params, "include_tags"),
		IncludeKeys:       getStringSlice(params, "include_keys"),
		IncludeCategories: categories,
		ExcludeTags:       getStringSlice(params, "exclude_tags"),
	}
}
