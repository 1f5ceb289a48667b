// Package agentbind derives stable agent identities from (project path,
// branch, client tool) and implements the session-start/resume algorithm.
package agentbind

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var providersYAML []byte

// providerEntry is one row of the curated client-name table.
type providerEntry struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

type providerTable struct {
	Providers []providerEntry `yaml:"providers"`
}

var curated = mustLoadCurated()

func mustLoadCurated() providerTable {
	var t providerTable
	if err := yaml.Unmarshal(providersYAML, &t); err != nil {
		panic("agentbind: malformed embedded providers.yaml: " + err.Error())
	}
	return t
}

// NormalizeProvider maps a raw client name reported at RPC handshake time
// to its curated canonical form (claude-code, cursor, windsurf, …). Names
// absent from the curated table are sanitized: lower-cased, spaces turned
// to hyphens.
func NormalizeProvider(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return "unknown"
	}
	for _, entry := range curated.Providers {
		if lowered == entry.Match {
			return entry.Name
		}
	}
	return strings.ReplaceAll(lowered, " ", "-")
}
