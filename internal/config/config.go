// Package config implements the persisted provider/feature-flag file at
// ${HOME}/.savecontext/config.json, layered under environment overrides per
// spec.md §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CompactionMode controls when the server nudges an agent to call
// context_prepare_compaction.
type CompactionMode string

const (
	CompactionAuto   CompactionMode = "auto"
	CompactionRemind CompactionMode = "remind"
	CompactionManual CompactionMode = "manual"
)

const (
	envAgentID               = "SAVECONTEXT_AGENT_ID"
	envCompactionMode         = "SAVECONTEXT_COMPACTION_MODE"
	envCompactionThreshold    = "SAVECONTEXT_COMPACTION_THRESHOLD"
	defaultCompactionMode     = CompactionRemind
	defaultCompactionThreshold = 80
	minCompactionThreshold     = 50
	maxCompactionThreshold     = 95
)

// Embedding holds the embedding-provider configuration persisted to disk.
// Token is never written back out in plaintext to callers that dump the
// config for display; it's kept alongside provider selection here because
// both travel together through the same config file and CLI flags.
type Embedding struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Config is the full persisted feature-flag document.
type Config struct {
	CompactionMode      CompactionMode `json:"compaction_mode,omitempty"`
	CompactionThreshold int            `json:"compaction_threshold,omitempty"`
	Embedding           Embedding      `json:"embedding"`
}

// Dir returns ${HOME}/.savecontext, creating it if absent.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".savecontext")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create savecontext dir: %w", err)
	}
	return dir, nil
}

func path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads config.json, returning zero-value defaults if it doesn't
// exist yet.
func Load() (*Config, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Save writes c to config.json, creating the file with owner-only
// permissions since it may hold an embedding provider bearer token.
func Save(c *Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(p, data, 0o600)
}

// EffectiveCompactionMode resolves mode precedence: env var, else the
// persisted config, else the documented default.
func EffectiveCompactionMode(c *Config) CompactionMode {
	if raw := os.Getenv(envCompactionMode); raw != "" {
		switch CompactionMode(raw) {
		case CompactionAuto, CompactionRemind, CompactionManual:
			return CompactionMode(raw)
		}
	}
	if c != nil && c.CompactionMode != "" {
		return c.CompactionMode
	}
	return defaultCompactionMode
}

// EffectiveCompactionThreshold resolves threshold precedence the same way,
// clamped to the documented [50,95] range.
func EffectiveCompactionThreshold(c *Config) int {
	if raw := os.Getenv(envCompactionThreshold); raw != "" {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err == nil {
			return clampThreshold(n)
		}
	}
	if c != nil && c.CompactionThreshold != 0 {
		return clampThreshold(c.CompactionThreshold)
	}
	return defaultCompactionThreshold
}

func clampThreshold(n int) int {
	if n < minCompactionThreshold {
		return minCompactionThreshold
	}
	if n > maxCompactionThreshold {
		return maxCompactionThreshold
	}
	return n
}

// AgentIDOverride returns the SAVECONTEXT_AGENT_ID override, if set. It is
// read directly from the environment here too, so callers outside
// agentbind can report it.
func AgentIDOverride() (string, bool) {
	v := os.Getenv(envAgentID)
	return v, v != ""
}

// BackupPath returns a timestamped path under ${HOME}/.savecontext/backups
// for a pre-switch database backup.
func BackupPath(nowMS int64) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	backups := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backups, 0o755); err != nil {
		return "", fmt.Errorf("create backups dir: %w", err)
	}
	return filepath.Join(backups, fmt.Sprintf("savecontext-%d.db", nowMS)), nil
}
