// Package blobstoretest checks a blobstore.Store against the way backups
// and collection archives use it.
package blobstoretest

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/docdb/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the store returned by newStore. Every subtest gets its own
// store; remote stores should hand out a fresh root prefix per call.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Helper()

	t.Run("BackupLayout", func(t *testing.T) { testBackupLayout(t, newStore(t)) })
	t.Run("SameSizeIsDetected", func(t *testing.T) { testSameSize(t, newStore(t)) })
	t.Run("ReadAtEOF", func(t *testing.T) { testReadAtEOF(t, newStore(t)) })
	t.Run("AbortDiscardsPartialUpload", func(t *testing.T) { testAbort(t, newStore(t)) })
	t.Run("ShortSourceIsDiscarded", func(t *testing.T) { testShortSource(t, newStore(t)) })
	t.Run("MissingBlob", func(t *testing.T) { testMissing(t, newStore(t)) })
}

// dataFile returns deterministic content standing in for a sealed data file.
func dataFile(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func upload(t *testing.T, s blobstore.Store, name string, data []byte) {
	t.Helper()
	n, err := blobstore.Upload(context.Background(), s, name, bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
}

func testBackupLayout(t *testing.T, s blobstore.Store) {
	ctx := context.Background()

	first := path.Join("shop", uuid.NewString())
	second := path.Join("shop", uuid.NewString())

	files := map[string][]byte{
		"shop_orders.0": dataFile(1, 4096),
		"shop_orders.1": dataFile(2, 100),
		"shop.catalog":  dataFile(3, 512),
		"MANIFEST.json": []byte(`{"database":"shop"}`),
	}
	for name, data := range files {
		upload(t, s, path.Join(first, name), data)
	}
	upload(t, s, path.Join(second, "shop_orders.0"), dataFile(9, 10))

	names, err := s.List(ctx, first+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		path.Join(first, "MANIFEST.json"),
		path.Join(first, "shop.catalog"),
		path.Join(first, "shop_orders.0"),
		path.Join(first, "shop_orders.1"),
	}, names)

	all, err := s.List(ctx, "shop/")
	require.NoError(t, err)
	assert.Len(t, all, len(files)+1)

	for name, want := range files {
		got, err := blobstore.ReadAll(ctx, s, path.Join(first, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func testSameSize(t *testing.T, s blobstore.Store) {
	ctx := context.Background()
	name := path.Join("db", uuid.NewString(), "db_people.0")

	upload(t, s, name, dataFile(0, 3000))

	b, err := s.Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), b.Size())
	require.NoError(t, b.Close())

	// A data file that grew before sealing is uploaded again.
	upload(t, s, name, dataFile(0, 3500))

	b, err = s.Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), b.Size())
	require.NoError(t, b.Close())
}

func testReadAtEOF(t *testing.T, s blobstore.Store) {
	ctx := context.Background()
	name := path.Join("db", uuid.NewString(), "db_people.0")
	data := []byte("0123456789")
	require.NoError(t, s.Put(ctx, name, data))

	b, err := s.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()

	buf := make([]byte, 4)
	n, err := b.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	n, err = b.ReadAt(ctx, buf, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, "89", string(buf[:n]))

	n, err = b.ReadAt(ctx, buf, 10)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)

	r, err := b.ReadRange(ctx, 7, 100)
	require.NoError(t, err)
	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "789", string(tail))

	_, err = b.ReadRange(ctx, 10, 1)
	assert.ErrorIs(t, err, io.EOF)
}

func testAbort(t *testing.T, s blobstore.Store) {
	ctx := context.Background()
	dir := path.Join("db", uuid.NewString())
	name := path.Join(dir, "db_people.0")
	require.NoError(t, s.Put(ctx, name, []byte("sealed")))

	w, err := s.Create(ctx, name)
	require.NoError(t, err)
	_, err = w.Write([]byte("partial upload"))
	require.NoError(t, err)

	a, ok := w.(blobstore.Aborter)
	require.True(t, ok, "writer must support Abort")
	require.NoError(t, a.Abort())

	got, err := blobstore.ReadAll(ctx, s, name)
	require.NoError(t, err)
	assert.Equal(t, "sealed", string(got))

	names, err := s.List(ctx, dir+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)
}

func testShortSource(t *testing.T, s blobstore.Store) {
	ctx := context.Background()
	name := path.Join("db", uuid.NewString(), "db_people.0")

	n, err := blobstore.Upload(ctx, s, name, strings.NewReader("truncated"), 1024)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(len("truncated")), n)

	_, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func testMissing(t *testing.T, s blobstore.Store) {
	ctx := context.Background()
	name := path.Join("db", uuid.NewString(), "MANIFEST.json")

	_, err := s.Open(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, s.Delete(ctx, name))

	require.NoError(t, s.Put(ctx, name, []byte("{}")))
	require.NoError(t, s.Delete(ctx, name))
	require.NoError(t, s.Delete(ctx, name))

	_, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
