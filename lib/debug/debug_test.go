package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebuggerIds(t *testing.T) {
	d, err := New(t.TempDir(), "test", 0)
	require.NoError(t, err)

	require.Equal(t, "test-0000", d.ID())
	require.Equal(t, "test-0001", d.Next())
	require.Equal(t, "test-0002", d.Next())
	require.True(t, strings.HasSuffix(d.File(), "test-0002.debug"))

	random, err := New(t.TempDir(), "", 6)
	require.NoError(t, err)
	require.Len(t, random.Name(), 6)
	require.Equal(t, random.Name()+"-000000", random.ID())
}

func TestDebuggerSave(t *testing.T) {
	dir := t.TempDir()
	d, err := New(dir, "save", 4)
	require.NoError(t, err)

	require.NoError(t, d.Save(map[string]any{"a": 1}))
	contents, err := os.ReadFile(filepath.Join(dir, "save-0000.debug"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"a\": 1\n}", string(contents))

	d.Write("7", "GET /")
	contents, err = os.ReadFile(filepath.Join(dir, "save-0001.debug"))
	require.NoError(t, err)
	require.Equal(t, "# 7\n\nGET /", string(contents))

	require.NoError(t, d.Save(func() {}))
}
