package txnfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")

	require.NoError(t, WriteFile(path, []byte("a = 1\n"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a = 1\n", string(got))
}

func TestWriteFileReplacesExistingAndLeavesNoBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	require.NoError(t, WriteFile(path, []byte("a = 2\n"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a = 2\n", string(got))

	_, err = os.Stat(path + ".orig")
	require.True(t, os.IsNotExist(err), "backup file should not survive a successful write")
}

func TestWriteFileFailsUnderMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-subdir", "manifest.toml")

	err := WriteFile(path, []byte("new\n"), 0o644)
	require.Error(t, err)
	require.Contains(t, err.Error(), "creating temp file")
}
