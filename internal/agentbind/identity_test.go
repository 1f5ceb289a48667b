package agentbind

import (
	"os"
	"testing"
)

func TestDeriveAgentIDEnvOverride(t *testing.T) {
	t.Setenv(AgentIDEnvVar, "custom-agent-id")
	got := DeriveAgentID("/repo/app", "main", "claude-code")
	if got != "custom-agent-id" {
		t.Errorf("expected env override, got %q", got)
	}
}

func TestDeriveAgentIDGlobalWithoutProjectPath(t *testing.T) {
	os.Unsetenv(AgentIDEnvVar)
	got := DeriveAgentID("", "main", "claude-code")
	if got != "global-claude-code" {
		t.Errorf("expected global-<provider>, got %q", got)
	}
}

func TestDeriveAgentIDDefaultShape(t *testing.T) {
	os.Unsetenv(AgentIDEnvVar)
	got := DeriveAgentID("/repo/myapp", "feature-x", "cursor")
	if got != "myapp-feature-x-cursor" {
		t.Errorf("expected basename-branch-provider shape, got %q", got)
	}
}

func TestDeriveAgentIDMissingBranchDefaultsNoBranch(t *testing.T) {
	os.Unsetenv(AgentIDEnvVar)
	got := DeriveAgentID("/repo/myapp", "", "cursor")
	if got != "myapp-no-branch-cursor" {
		t.Errorf("expected no-branch placeholder, got %q", got)
	}
}
