package devenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkspaceRoot(t *testing.T) {
	root, err := GetWorkspaceRoot()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "go.mod"))
	require.NoError(t, err)
}

func TestResolvePath(t *testing.T) {
	plain, err := ResolvePath("some/file.db")
	require.NoError(t, err)
	require.Equal(t, "some/file.db", plain)

	root, err := GetWorkspaceRoot()
	require.NoError(t, err)
	resolved, err := ResolvePath("<dev_state>/cache/file.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dev", ".state", "cache", "file.db"), resolved)
}
