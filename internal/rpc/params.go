package rpc

import "github.com/savecontext/savecontext/internal/store"

// Conversions from the dynamic tool-argument map to typed request structs,
// per spec.md §9's re-architected pattern: handlers never touch
// map[string]interface{} beyond this file.

func getString(params map[string]interface{}, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func requireString(params map[string]interface{}, key string) (string, error) {
	s := getString(params, key)
	if s == "" {
		return "", store.Validation("%s is required", key)
	}
	return s, nil
}

func getBool(params map[string]interface{}, key string) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getInt(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func getFloat(params map[string]interface{}, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

func getStringSlice(params map[string]interface{}, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getIntPtr(params map[string]interface{}, key string) *int {
	if v, ok := params[key]; ok {
		if f, ok := v.(float64); ok {
			n := int(f)
			return &n
		}
	}
	return nil
}

func getStringPtr(params map[string]interface{}, key string) *string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

// resolveSessionID returns the explicit session_id param if set, else falls
// back to agentID's current bound session, per the implicit-session
// convenience every context/checkpoint tool offers.
func resolveSessionID(s *store.Store, agentID string, params map[string]interface{}) (string, error) {
	if sid := getString(params, "session_id"); sid != "" {
		return sid, nil
	}
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return "", store.Validation("session_id is required (no current session bound to this agent)")
	}
	if agent.CurrentSessionID == "" {
		return "", store.Validation("session_id is required (no current session bound to this agent)")
	}
	return agent.CurrentSessionID, nil
}

func strEnum(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
