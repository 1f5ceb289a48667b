package rpc

import (
	"context"
	"time"

	"github.com/savecontext/savecontext/internal/search"
	"github.com/savecontext/savecontext/internal/store"
)

func registerSearchTools(reg *Registry, s *store.Store, svc *search.Service) {
	reg.Register(ToolDefinition{
		Name:        "search",
		Description: "Search context items: semantic when an embedding provider is available, keyword otherwise.",
		Parameters: map[string]ParameterDef{
			"query":        {Type: "string", Description: "search text", Required: true},
			"session_id":   {Type: "string", Description: "session id, defaults to the agent's current session"},
			"all_sessions": {Type: "boolean", Description: "search across every session"},
			"category":     {Type: "string", Description: "filter by category"},
			"priority":     {Type: "string", Description: "filter by priority"},
			"channel":      {Type: "string", Description: "filter by channel"},
			"limit":        {Type: "number", Description: "max results"},
			"threshold":    {Type: "number", Description: "minimum cosine similarity for semantic mode"},
		},
		Handler: func(agentID string, params map[string]interface{}) Envelope {
			query, err := requireString(params, "query")
			if err != nil {
				return errEnvelope(err)
			}
			sessionID := getString(params, "session_id")
			if sessionID == "" && !getBool(params, "all_sessions") {
				sessionID, _ = resolveSessionID(s, agentID, params)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := svc.Search(ctx, search.Request{
				Query:       query,
				SessionID:   sessionID,
				AllSessions: getBool(params, "all_sessions"),
				Filters: search.Filters{
					Category: store.ItemCategory(getString(params, "category")),
					Priority: store.ItemPriority(getString(params, "priority")),
					Channel:  getString(params, "channel"),
				},
				Limit:     getInt(params, "limit", 0),
				Threshold: getFloat(params, "threshold", 0),
			})
			if err != nil {
				return errEnvelope(err)
			}
			data := map[string]interface{}{
				"mode":    result.Mode,
				"shape":   result.Shape,
				"matches": result.Matches,
			}
			if result.Tip != "" {
				return okMessage(result.Tip, data)
			}
			return ok(data)
		},
	})
}
