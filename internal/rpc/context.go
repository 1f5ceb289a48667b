package rpc

import (
	"github.com/savecontext/savecontext/internal/embedding"
	"github.com/savecontext/savecontext/internal/store"
)

func registerContextTools(reg *Registry, s *store.Store, pool *embedding.Pool) {
	reg.Register(ToolDefinition{
		Name:        "context_save",
		Description: "Save or overwrite a keyed piece of working memory in the current session.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id, defaults to the agent's current session"},
			"key":        {Type: "string", Description: "item key", Required: true},
			"value":      {Type: "string", Description: "item value", Required: true},
			"category":   {Type: "string", Description: "reminder|decision|progress|note", Enum: []string{"reminder", "decision", "progress", "note"}},
			"priority":   {Type: "string", Description: "high|normal|low", Enum: []string{"high", "normal", "low"}},
			"channel":    {Type: "string", Description: "channel"},
			"tags":       {Type: "array", Description: "tags"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
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
			item, err := s.SaveContextItem(sessionID, key, value,
				store.ItemCategory(getString(params, "category")),
				store.ItemPriority(getString(params, "priority")),
				getString(params, "channel"),
				getStringSlice(params, "tags"))
			if err != nil {
				return errEnvelope(err)
			}
			if pool != nil {
				pool.Submit(item.ID, item.Value)
			}
			return ok(item)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "context_get",
		Description: "Fetch one context item by key.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id, defaults to the agent's current session"},
			"key":        {Type: "string", Description: "item key", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			key, err := requireString(params, "key")
			if err != nil {
				return errEnvelope(err)
			}
			item, err := s.GetContextItem(sessionID, key)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(item)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "context_list",
		Description: "List context items in a session, optionally filtered.",
		Parameters: map[string]ParameterDef{
			"session_id": {Type: "string", Description: "session id, defaults to the agent's current session"},
			"category":   {Type: "string", Description: "reminder|decision|progress|note"},
			"priority":   {Type: "string", Description: "high|normal|low"},
			"channel":    {Type: "string", Description: "channel"},
			"tag":        {Type: "string", Description: "tag"},
			"limit":      {Type: "number", Description: "max results"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			items, err := s.ListContextItems(sessionID, store.ContextItemListFilter{
				Category: store.ItemCategory(getString(params, "category")),
				Priority: store.ItemPriority(getString(params, "priority")),
				Channel:  getString(params, "channel"),
				Tag:      getString(params, "tag"),
				Limit:    getInt(params, "limit", 0),
			})
			if err != nil {
				return errEnvelope(err)
			}
			return ok(items)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "context_delete",
		Description: "Delete a context item by id.",
		Parameters: map[string]ParameterDef{
			"id": {Type: "string", Description: "context item id", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			id, err := requireString(params, "id")
			if err != nil {
				return errEnvelope(err)
			}
			if err := s.DeleteContextItem(id); err != nil {
				return errEnvelope(err)
			}
			return ok(nil)
		},
	})

	reg.Register(ToolDefinition{
		Name:        "context_tag",
		Description: "Add or remove tags across a set of items matched by key or key_pattern.",
		Parameters: map[string]ParameterDef{
			"session_id":  {Type: "string", Description: "session id, defaults to the agent's current session"},
			"keys":        {Type: "array", Description: "exact keys to match"},
			"key_pattern": {Type: "string", Description: "glob pattern to match keys"},
			"tags":        {Type: "array", Description: "tags to add/remove", Required: true},
			"action":      {Type: "string", Description: "add|remove", Enum: []string{"add", "remove"}, Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			sessionID, err := resolveSessionID(s, agentID, params)
			if err != nil {
				return errEnvelope(err)
			}
			tags := getStringSlice(params, "tags")
			if len(tags) == 0 {
				return errEnvelope(store.Validation("tags is required"))
			}
			action := store.TagAction(getString(params, "action"))
			if !strEnum(string(action), string(store.TagAdd), string(store.TagRemove)) {
				return errEnvelope(store.Validation("action must be add or remove"))
			}
			affected, err := s.TagItems(sessionID, getStringSlice(params, "keys"), getString(params, "key_pattern"), tags, action)
			if err != nil {
				return errEnvelope(err)
			}
			return ok(map[string]interface{}{"affected": affected})
		},
	})
}
