package gitstatus

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOutsideRepo(t *testing.T) {
	tmpDir := t.TempDir()

	st, err := Get(tmpDir)
	require.NoError(t, err)
	require.Equal(t, &Status{}, st)
}

func TestGetInsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tmpDir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		require.NoError(t, cmd.Run())
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("x"), 0644))
	run("add", "a.txt")
	run("commit", "-m", "initial")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "b.txt"), []byte("y"), 0644))
	run("add", "b.txt")

	st, err := Get(tmpDir)
	require.NoError(t, err)
	require.Equal(t, "main", st.Branch)
	require.Contains(t, st.Added, "b.txt")
}
