package rpc

import "github.com/savecontext/savecontext/internal/store"

// Handler executes one tool call for agentID with raw argument params,
// returning the envelope that goes back on the wire.
type Handler func(agentID string, params map[string]interface{}) Envelope

// ParameterDef documents one tool argument for tools/list.
type ParameterDef struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolDefinition describes one registered tool: its contract plus handler.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParameterDef
	Handler     Handler
}

// Registry holds every tool the server exposes, keyed by name.
type Registry struct {
	tools map[string]ToolDefinition
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ToolDefinition)}
}

func (r *Registry) Register(tool ToolDefinition) {
	r.tools[tool.Name] = tool
}

func (r *Registry) Get(name string) (ToolDefinition, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List builds the tools/list JSON shape for the handshake response.
func (r *Registry) List() []map[string]interface{} {
	var out []map[string]interface{}
	for _, tool := range r.tools {
		props := make(map[string]interface{})
		var required []string
		for name, def := range tool.Parameters {
			prop := map[string]interface{}{
				"type":        def.Type,
				"description": def.Description,
			}
			if len(def.Enum) > 0 {
				prop["enum"] = def.Enum
			}
			props[name] = prop
			if def.Required {
				required = append(required, name)
			}
		}
		out = append(out, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		})
	}
	return out
}

// Execute dispatches name to its handler, building a fail envelope for an
// unknown tool rather than erroring at the transport level.
func (r *Registry) Execute(name, agentID string, params map[string]interface{}) Envelope {
	tool, ok := r.tools[name]
	if !ok {
		return fail("not_found", "unknown tool: "+name)
	}
	return tool.Handler(agentID, params)
}

// errEnvelope maps a store.Error's Kind to a stable envelope code.
func errEnvelope(err error) Envelope {
	se, ok := store.AsStoreError(err)
	if !ok {
		return fail("internal", err.Error())
	}
	code := "internal"
	switch se.Kind {
	case store.KindValidation:
		code = "validation"
	case store.KindNotFound:
		code = "not_found"
	case store.KindConflict:
		code = "conflict"
	case store.KindIntegrity:
		code = "integrity"
	case store.KindUnavailable:
		code = "unavailable"
	}
	return fail(code, se.Message)
}
