package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, &Config{}, c)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c := &Config{
		CompactionMode:      CompactionAuto,
		CompactionThreshold: 70,
		Embedding:           Embedding{Provider: "lmstudio", Model: "nomic-embed-text"},
	}
	require.NoError(t, Save(c))

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, c, loaded)
}

func TestEffectiveCompactionModePrecedence(t *testing.T) {
	require.Equal(t, defaultCompactionMode, EffectiveCompactionMode(nil))
	require.Equal(t, CompactionManual, EffectiveCompactionMode(&Config{CompactionMode: CompactionManual}))

	t.Setenv(envCompactionMode, "auto")
	require.Equal(t, CompactionAuto, EffectiveCompactionMode(&Config{CompactionMode: CompactionManual}))
}

func TestEffectiveCompactionThresholdClamps(t *testing.T) {
	require.Equal(t, defaultCompactionThreshold, EffectiveCompactionThreshold(nil))
	require.Equal(t, minCompactionThreshold, EffectiveCompactionThreshold(&Config{CompactionThreshold: 10}))
	require.Equal(t, maxCompactionThreshold, EffectiveCompactionThreshold(&Config{CompactionThreshold: 999}))
	require.Equal(t, 60, EffectiveCompactionThreshold(&Config{CompactionThreshold: 60}))
}

func TestAgentIDOverride(t *testing.T) {
	_, ok := AgentIDOverride()
	require.False(t, ok)

	t.Setenv(envAgentID, "agent-123")
	v, ok := AgentIDOverride()
	require.True(t, ok)
	require.Equal(t, "agent-123", v)
}

func TestBackupPathUnderSavecontextDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := BackupPath(1700000000000)
	require.NoError(t, err)
	require.Contains(t, p, "backups")
	require.Contains(t, p, "1700000000000")
}
