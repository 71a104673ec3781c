package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	assert.False(t, m.Writable())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)

	assert.ErrorIs(t, m.Flush(0, 1, false), ErrReadOnly)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}

func TestMmap_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AccessSequential))
}

func TestMmap_ReadWriteFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rw")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)

	const size = 3 * 4096
	require.NoError(t, Allocate(f, size))

	fi, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(size), fi.Size())

	m, err := Map(f, size, ReadWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	off := 4096 + 100
	copy(m.Bytes()[off:], "payload")
	require.NoError(t, m.Flush(off, len("payload"), false))
	require.NoError(t, m.Flush(0, 10, true))
	assert.ErrorIs(t, m.Flush(size-1, 2, false), ErrOutOfBounds)
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data[off:off+7]))
}

func TestFile_RefCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)

	closed := 0
	f := NewFile(m, func(*File) { closed++ })
	assert.Equal(t, int64(1), f.Refs())

	require.True(t, f.TryRetain())
	require.NoError(t, f.Release())
	assert.False(t, f.Closed())
	assert.Equal(t, "abc", string(f.Bytes()))

	require.NoError(t, f.Release())
	assert.True(t, f.Closed())
	assert.Equal(t, 1, closed)
	assert.False(t, f.TryRetain())
	assert.Panics(t, func() { _ = f.Release() })
}
