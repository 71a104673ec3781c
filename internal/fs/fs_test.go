package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Truncate(64))
	assert.NotZero(t, f.Fd())
	assert.Equal(t, fpath, f.Name())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(64), info.Size())
	assert.NoError(t, f.Close())

	ok, err := Exists(lfs, fpath)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.NoError(t, lfs.Remove(fpath))
	ok, err = Exists(lfs, fpath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	boom := errors.New("boom")

	ffs.AddRule("limited", Fault{FailAfterBytes: 5})
	ffs.AddRule("noopen", Fault{FailOnOpen: true, Err: boom})
	ffs.AddRule("nogrow", Fault{FailAfterBytes: -1, FailOnTruncate: true, FailOnSync: true, FailOnClose: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "limited.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.NoError(t, f.Close())

	_, err = ffs.OpenFile(filepath.Join(tmp, "noopen.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, boom)

	g, err := ffs.OpenFile(filepath.Join(tmp, "nogrow.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, g.Truncate(10), ErrInjected)
	assert.ErrorIs(t, g.Sync(), ErrInjected)
	assert.ErrorIs(t, g.Close(), ErrInjected)

	ffs.RemoveRule("noopen")
	h, err := ffs.OpenFile(filepath.Join(tmp, "noopen.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}
