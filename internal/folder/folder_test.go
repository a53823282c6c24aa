package folder

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSListSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "output"), 0o755))

	names, err := OS{}.List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, names)

	size, err := OS{}.Size(dir, "a.txt")
	require.NoError(t, err)
	require.Equal(t, int64(1), size)
}

func TestListMatching(t *testing.T) {
	mem := Mem{"/p": {"a.oov.dict": 3, "b.ctm": 0, "c.wav": 9}}

	matches, err := ListMatching(mem, "/p", "*.oov.dict")
	require.NoError(t, err)
	require.Equal(t, []string{"a.oov.dict"}, matches)

	matches, err = ListMatching(mem, "/p", "*")
	require.NoError(t, err)
	sort.Strings(matches)
	require.Equal(t, []string{"a.oov.dict", "b.ctm", "c.wav"}, matches)

	_, err = ListMatching(mem, "/missing", "*")
	require.Error(t, err)
}

func TestHasNonEmptyMatching(t *testing.T) {
	mem := Mem{"/p": {"empty.ctm": 0, "full.ctm": 12, "x.wav": 4}}

	ok, err := HasNonEmptyMatching(mem, "/p", "*.ctm")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = HasNonEmptyMatching(Mem{"/p": {"empty.ctm": 0}}, "/p", "*.ctm")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = HasNonEmptyMatching(mem, "/p", "*.dict")
	require.NoError(t, err)
	require.False(t, ok)
}
