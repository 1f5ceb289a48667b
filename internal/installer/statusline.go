// Package installer implements the CLI's one-shot setup operations:
// writing the status-line script and merging the PostToolUse hook and
// statusLine entry into ${HOME}/.claude/settings.json, preserving every
// other key already there. Grounded on the same settings.json merge
// approach the example CLI installer uses for its own hooks.
package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const postToolUseMatcher = `mcp__savecontext__.*`

// ClaudeSettings is the subset of .claude/settings.json this installer
// cares about; everything else round-trips through rawSettings untouched.
type ClaudeSettings struct {
	StatusLine *StatusLineConfig `json:"statusLine,omitempty"`
	Hooks      ClaudeHooks       `json:"hooks"`
}

type StatusLineConfig struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type ClaudeHooks struct {
	PostToolUse []ClaudeHookMatcher `json:"PostToolUse,omitempty"`
}

type ClaudeHookMatcher struct {
	Matcher string            `json:"matcher"`
	Hooks   []ClaudeHookEntry `json:"hooks"`
}

type ClaudeHookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// statusLineScriptName picks the file name by platform: statusline.ps1 on
// Windows, statusline.sh elsewhere. Both names receive the same POSIX sh
// body (statusLineScriptUnix); there is no PowerShell version of the script.
func statusLineScriptName() string {
	if runtime.GOOS == "windows" {
		return "statusline.ps1"
	}
	return "statusline.sh"
}

const statusLineScriptUnix = `#!/bin/sh
# Reads the savecontext status-cache snapshot for $SAVECONTEXT_AGENT_ID
# (set by the PostToolUse hook) and prints a single status-line segment.
CACHE="$HOME/.savecontext/status-cache/${SAVECONTEXT_AGENT_ID:-unknown}.json"
if [ -f "$CACHE" ]; then
  SESSION=$(grep -o '"session_name":"[^"]*"' "$CACHE" | cut -d'"' -f4)
  CHANNEL=$(grep -o '"channel":"[^"]*"' "$CACHE" | cut -d'"' -f4)
  printf '[%s/%s]' "${SESSION:-no-session}" "${CHANNEL:-general}"
fi
`

// SetupStatusLine writes the status-line script and installs the
// PostToolUse hook + statusLine entry into ${HOME}/.claude/settings.json.
func SetupStatusLine() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	scriptDir := filepath.Join(home, ".savecontext")
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", scriptDir, err)
	}
	scriptPath := filepath.Join(scriptDir, statusLineScriptName())
	if err := os.WriteFile(scriptPath, []byte(statusLineScriptUnix), 0o755); err != nil {
		return fmt.Errorf("write status-line script: %w", err)
	}

	settingsDir := filepath.Join(home, ".claude")
	if err := os.MkdirAll(settingsDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", settingsDir, err)
	}
	settingsPath := filepath.Join(settingsDir, "settings.json")

	rawSettings := map[string]json.RawMessage{}
	if data, err := os.ReadFile(settingsPath); err == nil {
		if err := json.Unmarshal(data, &rawSettings); err != nil {
			return fmt.Errorf("parse existing settings.json: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read settings.json: %w", err)
	}

	var hooks ClaudeHooks
	if raw, ok := rawSettings["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooks); err != nil {
			return fmt.Errorf("parse hooks in settings.json: %w", err)
		}
	}

	postToolCmd := scriptPath + " --post-tool-use"
	if !hookCommandExists(hooks.PostToolUse, postToolUseMatcher, postToolCmd) {
		hooks.PostToolUse = append(hooks.PostToolUse, ClaudeHookMatcher{
			Matcher: postToolUseMatcher,
			Hooks:   []ClaudeHookEntry{{Type: "command", Command: postToolCmd}},
		})
	}

	hooksJSON, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksJSON

	statusLineJSON, err := json.Marshal(StatusLineConfig{Type: "command", Command: scriptPath})
	if err != nil {
		return fmt.Errorf("marshal statusLine: %w", err)
	}
	rawSettings["statusLine"] = statusLineJSON

	out, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings.json: %w", err)
	}
	return os.WriteFile(settingsPath, out, 0o644)
}

func hookCommandExists(matchers []ClaudeHookMatcher, matcher, command string) bool {
	for _, m := range matchers {
		if m.Matcher != matcher {
			continue
		}
		for _, h := range m.Hooks {
			if h.Command == command {
				return true
			}
		}
	}
	return false
}
