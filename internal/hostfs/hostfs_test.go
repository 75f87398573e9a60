package hostfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	return NewOS(t.TempDir())
}

func TestWriteReadFile(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.WriteFile("hello.txt", []byte("hi"), 0o644))
	data, err := f.ReadFile("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))
}

func TestReadFileMissingMapsToEnoent(t *testing.T) {
	f := newTestFS(t)
	_, err := f.ReadFile("missing.txt")
	require.Error(t, err)
	var fsErr *Error
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, "ENOENT", fsErr.Code)
}

func TestMkdirAndReadDir(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.Mkdir("sub", 0o755, false))
	require.NoError(t, f.WriteFile(filepath.Join("sub", "a.txt"), []byte("a"), 0o644))
	require.NoError(t, f.WriteFile(filepath.Join("sub", "b.txt"), []byte("b"), 0o644))

	entries, err := f.ReadDir("sub")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestStatAndExists(t *testing.T) {
	f := newTestFS(t)
	require.False(t, f.Exists("nope.txt"))
	require.NoError(t, f.WriteFile("x.txt", []byte("xyz"), 0o644))
	require.True(t, f.Exists("x.txt"))

	st, err := f.Stat("x.txt")
	require.NoError(t, err)
	require.Equal(t, int64(3), st.Size)
	require.False(t, st.IsDir)
}

func TestRenameAndUnlink(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.WriteFile("a.txt", []byte("a"), 0o644))
	require.NoError(t, f.Rename("a.txt", "b.txt"))
	require.False(t, f.Exists("a.txt"))
	require.True(t, f.Exists("b.txt"))
	require.NoError(t, f.Unlink("b.txt"))
	require.False(t, f.Exists("b.txt"))
}

func TestCopyFile(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.WriteFile("src.txt", []byte("copy me"), 0o644))
	require.NoError(t, f.CopyFile("src.txt", "dst.txt"))
	data, err := f.ReadFile("dst.txt")
	require.NoError(t, err)
	require.Equal(t, "copy me", string(data))
}

func TestAppendFile(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.WriteFile("log.txt", []byte("a"), 0o644))
	require.NoError(t, f.AppendFile("log.txt", []byte("b"), 0o644))
	data, err := f.ReadFile("log.txt")
	require.NoError(t, err)
	require.Equal(t, "ab", string(data))
}

func TestRealpathResolvesSymlink(t *testing.T) {
	f := newTestFS(t)
	require.NoError(t, f.WriteFile("target.txt", []byte("t"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(f.root, "target.txt"), filepath.Join(f.root, "link.txt")))
	resolved, err := f.Realpath("link.txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(f.root, "target.txt"), resolved)
}
