package agentbind

import (
	"os"
	"path/filepath"
)

// AgentIDEnvVar overrides the derived agent identity when set.
const AgentIDEnvVar = "SAVECONTEXT_AGENT_ID"

// DeriveAgentID computes the stable agent identity for (projectPath, branch,
// provider) following spec.md §4.3:
//
//	SAVECONTEXT_AGENT_ID                              (if set)
//	"global-" + provider                              (if projectPath missing)
//	basename(projectPath) + "-" + branch + "-" + provider  (default)
func DeriveAgentID(projectPath, branch, provider string) string {
	if override := os.Getenv(AgentIDEnvVar); override != "" {
		return override
	}
	if projectPath == "" {
		return "global-" + provider
	}
	base := filepath.Base(projectPath)
	if branch == "" {
		branch = "no-branch"
	}
	return base + "-" + branch + "-" + provider
}
