package installer

import (
	"fmt"
	"os"
	"path/filepath"
)

// skillTemplate is the markdown body written for every tool a skill is
// installed to; the content doesn't vary per tool, only the install path
// does.
const skillTemplate = `---
name: savecontext
description: Persist working memory, issues, plans, and checkpoints across coding sessions.
---

Use the savecontext MCP tools to save decisions, reminders, and progress
as you work, and call context_prepare_compaction before your context
window fills up.
`

// knownTools maps a --tool flag value to where that tool looks for
// project-level skill directories.
var knownTools = map[string]string{
	"claude-code": filepath.Join(".claude", "skills", "savecontext"),
	"cursor":      filepath.Join(".cursor", "skills", "savecontext"),
	"windsurf":    filepath.Join(".windsurf", "skills", "savecontext"),
}

// SetupSkill writes the skill directory for tool under root (the project
// root, or ${HOME} for a user-level install). An empty tool installs to
// every known tool; which tools were configured before is not checked.
func SetupSkill(root, tool string) ([]string, error) {
	tools := []string{tool}
	if tool == "" {
		tools = nil
		for name := range knownTools {
			tools = append(tools, name)
		}
	}

	var installed []string
	for _, t := range tools {
		rel, ok := knownTools[t]
		if !ok {
			return installed, fmt.Errorf("unknown tool %q (known: claude-code, cursor, windsurf)", t)
		}
		dir := filepath.Join(root, rel)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return installed, fmt.Errorf("create skill dir for %s: %w", t, err)
		}
		path := filepath.Join(dir, "SKILL.md")
		if err := os.WriteFile(path, []byte(skillTemplate), 0o644); err != nil {
			return installed, fmt.Errorf("write skill for %s: %w", t, err)
		}
		installed = append(installed, path)
	}
	return installed, nil
}
