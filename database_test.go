package docdb_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/docdb"
	"github.com/hupe1980/docdb/blobstore"
	"github.com/hupe1980/docdb/catalog"
	"github.com/hupe1980/docdb/document/jsondoc"
	"github.com/hupe1980/docdb/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleSchema = `{"fields": [
	{"name": "age", "type": "int32"},
	{"name": "score", "type": "double"},
	{"name": "name", "type": "string"}
]}`

var peopleIndexes = []index.Info{
	{Name: "age_vec", Type: index.TypeVector, Column: "age", Ascending: true},
	{Name: "name_bmp", Type: index.TypeInvertedBitmap, Column: "name"},
}

type fixedSampler uint64

func (s fixedSampler) MemoryUsage() (uint64, error) { return uint64(s), nil }

func openTestDB(t *testing.T, dir string, opts ...docdb.Option) *docdb.Database {
	t.Helper()

	opts = append([]docdb.Option{
		docdb.WithMemorySampler(fixedSampler(0)),
		docdb.WithMonitorInterval(time.Hour),
		docdb.WithMaxDataFileSize(1 << 20),
	}, opts...)
	db, err := docdb.Open(context.Background(), dir, "testdb", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

func createPeople(t *testing.T, db *docdb.Database) *docdb.Collection {
	t.Helper()

	c, err := db.CreateCollection(context.Background(), "people", jsondoc.MustSchema(peopleSchema), peopleIndexes...)
	require.NoError(t, err)
	return c
}

func person(age int, name string) []byte {
	return []byte(fmt.Sprintf(`{"age": %d, "score": %d.5, "name": %q}`, age, age, name))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingDatabase", func(t *testing.T) {
		_, err := docdb.Open(ctx, t.TempDir(), "testdb", docdb.WithCreateIfMissing(false))
		assert.ErrorIs(t, err, docdb.ErrNotFound)
	})

	t.Run("InvalidName", func(t *testing.T) {
		for _, name := range []string{"", "..", "a/b"} {
			_, err := docdb.Open(ctx, t.TempDir(), name)
			assert.ErrorIs(t, err, docdb.ErrInvalidArgument, "name %q", name)
		}
	})

	t.Run("CreatesCatalog", func(t *testing.T) {
		dir := t.TempDir()
		db := openTestDB(t, dir)
		assert.Equal(t, "testdb", db.Name())
		assert.FileExists(t, filepath.Join(dir, catalog.FileName("testdb")))
		assert.Empty(t, db.Collections())
	})
}

func TestDatabase_CreateCollection(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())
	schema := jsondoc.MustSchema(peopleSchema)

	_, err := db.CreateCollection(ctx, "people", schema, peopleIndexes...)
	require.NoError(t, err)
	_, err = db.CreateCollection(ctx, "orders", schema)
	require.NoError(t, err)

	_, err = db.CreateCollection(ctx, "people", schema)
	assert.ErrorIs(t, err, docdb.ErrExists)

	_, err = db.CreateCollection(ctx, "bad", schema, index.Info{Name: "x", Type: index.TypeVector, Column: "missing"})
	assert.ErrorIs(t, err, docdb.ErrInvalidArgument)

	_, err = db.CreateCollection(ctx, "nil", nil)
	assert.ErrorIs(t, err, docdb.ErrInvalidArgument)

	assert.Equal(t, []string{"orders", "people"}, db.Collections())

	c, err := db.Collection("people")
	require.NoError(t, err)
	assert.Len(t, c.Indexes(), 2)

	_, err = db.Collection("bad")
	assert.ErrorIs(t, err, docdb.ErrNotFound)
}

func TestCollection_InsertAndFilter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, t.TempDir())
	c := createPeople(t, db)

	first, err := c.MultiInsert(ctx, [][]byte{person(10, "alice"), person(20, "bob"), person(20, "carol")})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first)

	id, err := c.Insert(ctx, person(30, "dave"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	tests := []struct {
		name        string
		constraints []index.Constraint
		want        []uint64
	}{
		{"All", nil, []uint64{0, 1, 2, 3}},
		{"Equal", []index.Constraint{index.IntConstraint("age", index.OpEqual, 20)}, []uint64{1, 2}},
		{"Conjunction", []index.Constraint{
			index.IntConstraint("age", index.OpGreaterThanEqual, 20),
			index.StringConstraint("name", index.OpEqual, "dave"),
		}, []uint64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := c.Filter(ctx, tt.constraints...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids.ToArray())
		})
	}

	ids, err := c.FilterRange(ctx,
		index.IntConstraint("age", index.OpGreaterThan, 10),
		index.IntConstraint("age", index.OpLessThan, 30))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids.ToArray())

	_, err = c.Filter(ctx, index.DoubleConstraint("score", index.OpEqual, 1.5))
	assert.ErrorIs(t, err, docdb.ErrInvalidArgument)

	name, err := c.StringField(ctx, 1, "name")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	score, err := c.DoubleField(ctx, 3, "score")
	require.NoError(t, err)
	assert.InDelta(t, 30.5, score, 1e-9)

	ages, err := c.IntegerFields(ctx, []uint64{3, 0}, "age")
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 10}, ages)

	_, err = c.Document(ctx, 99)
	assert.ErrorIs(t, err, docdb.ErrNotFound)

	_, err = c.MultiInsert(ctx, [][]byte{person(1, "x"), []byte("not json")})
	var invalid *docdb.ErrInvalidDocument
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, invalid.Index)
	assert.ErrorIs(t, err, docdb.ErrInvalidArgument)
	assert.Equal(t, uint64(4), c.Count())
}

func TestDatabase_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := docdb.Open(ctx, dir, "testdb", docdb.WithMaxDataFileSize(256), docdb.WithCompression(true))
	require.NoError(t, err)
	c := createPeople(t, db)
	for i := range 20 {
		_, err := c.Insert(ctx, person(i, fmt.Sprintf("p%02d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close(ctx))

	db = openTestDB(t, dir, docdb.WithMaxDataFileSize(256), docdb.WithCreateIfMissing(false))
	assert.Equal(t, []string{"people"}, db.Collections())

	c, err = db.Collection("people")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), c.Count())

	ids, err := c.Filter(ctx, index.IntConstraint("age", index.OpGreaterThanEqual, 18))
	require.NoError(t, err)
	assert.Equal(t, []uint64{18, 19}, ids.ToArray())

	name, err := c.StringField(ctx, 7, "name")
	require.NoError(t, err)
	assert.Equal(t, "p07", name)

	id, err := c.Insert(ctx, person(99, "late"))
	require.NoError(t, err)
	assert.Equal(t, uint64(20), id)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Collections)
	assert.Equal(t, uint64(21), stats.Documents)
}

func TestCollection_DeleteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := docdb.Open(ctx, dir, "testdb", docdb.WithMemorySampler(fixedSampler(0)))
	require.NoError(t, err)
	c := createPeople(t, db)
	for i := range 5 {
		_, err := c.Insert(ctx, person(i, fmt.Sprintf("p%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, c.Delete(ctx, 1, 3))
	assert.ErrorIs(t, c.Delete(ctx, 3), docdb.ErrNotFound)
	require.NoError(t, db.Close(ctx))

	db = openTestDB(t, dir, docdb.WithCreateIfMissing(false))
	c, err = db.Collection("people")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.Count())

	ids, err := c.Filter(ctx, index.IntConstraint("age", index.OpGreaterThanEqual, 1))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 4}, ids.ToArray())

	_, err = c.Document(ctx, 3)
	assert.ErrorIs(t, err, docdb.ErrNotFound)

	id, err := c.Insert(ctx, person(5, "p5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
}

func TestDatabase_DropCollection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := openTestDB(t, dir)
	c := createPeople(t, db)

	_, err := c.Insert(ctx, person(1, "a"))
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "testdb_people.*"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	require.NoError(t, db.DropCollection(ctx, "people"))
	assert.Empty(t, db.Collections())
	for _, f := range files {
		assert.NoFileExists(t, f)
	}

	_, err = c.Insert(ctx, person(2, "b"))
	assert.ErrorIs(t, err, docdb.ErrClosed)
	assert.ErrorIs(t, db.DropCollection(ctx, "people"), docdb.ErrNotFound)

	// The name is free again.
	_, err = db.CreateCollection(ctx, "people", jsondoc.MustSchema(peopleSchema))
	require.NoError(t, err)
}

func TestDatabase_Backup(t *testing.T) {
	ctx := context.Background()
	metrics := &docdb.BasicMetricsCollector{}
	db := openTestDB(t, t.TempDir(),
		docdb.WithMaxDataFileSize(256),
		docdb.WithMetricsCollector(metrics),
		docdb.WithBackupConcurrency(2),
	)

	people := createPeople(t, db)
	orders, err := db.CreateCollection(ctx, "orders", jsondoc.MustSchema(`{"fields":[{"name":"total","type":"int64"}]}`))
	require.NoError(t, err)

	for i := range 10 {
		_, err := people.Insert(ctx, person(i, "someone"))
		require.NoError(t, err)
	}
	_, err = orders.Insert(ctx, []byte(`{"total": 42}`))
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	info, err := db.Backup(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, path.Join("testdb", info.ID), info.Prefix)

	data, err := blobstore.ReadAll(ctx, store, path.Join(info.Prefix, docdb.ManifestName))
	require.NoError(t, err)

	var m struct {
		Database    string `json:"database"`
		Catalog     string `json:"catalog"`
		Collections []struct {
			Name      string `json:"name"`
			Documents uint64 `json:"documents"`
			Files     []struct {
				Name  string `json:"name"`
				Bytes int64  `json:"bytes"`
			} `json:"files"`
		} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "testdb", m.Database)
	require.Len(t, m.Collections, 2)
	assert.Equal(t, "orders", m.Collections[0].Name)
	assert.Equal(t, "people", m.Collections[1].Name)
	assert.Equal(t, uint64(10), m.Collections[1].Documents)
	require.Len(t, m.Collections[0].Files, 1)

	files := 1
	for _, mc := range m.Collections {
		for _, f := range mc.Files {
			got, err := blobstore.ReadAll(ctx, store, path.Join(info.Prefix, f.Name))
			require.NoError(t, err)
			assert.Len(t, got, int(f.Bytes))
			files++
		}
	}
	assert.Equal(t, files, info.Files)

	snapshot, err := blobstore.ReadAll(ctx, store, path.Join(info.Prefix, m.Catalog))
	require.NoError(t, err)
	restoreDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(restoreDir, m.Catalog), snapshot, 0o644))
	restored, err := catalog.Open(restoreDir, "testdb")
	require.NoError(t, err)
	defs, err := restored.Collections(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	require.NoError(t, restored.Close())

	backups, err := db.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, info.ID, backups[0].ID)
	assert.Equal(t, info.Bytes, backups[0].Bytes)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BackupCount)
	assert.Equal(t, info.Bytes, stats.BackupBytes)

	// Documents stay readable after the backup sealed their files.
	name, err := people.StringField(ctx, 9, "name")
	require.NoError(t, err)
	assert.Equal(t, "someone", name)
}

func TestDatabase_MemoryMonitorUnmapsFiles(t *testing.T) {
	ctx := context.Background()
	metrics := &docdb.BasicMetricsCollector{}
	db := openTestDB(t, t.TempDir(),
		docdb.WithMaxDataFileSize(128),
		docdb.WithReaderCacheSize(1),
		docdb.WithMemorySampler(fixedSampler(1<<40)),
		docdb.WithMemoryCleanupThreshold(1),
		docdb.WithMonitorInterval(5*time.Millisecond),
		docdb.WithMetricsCollector(metrics),
	)
	c := createPeople(t, db)

	for i := range 12 {
		_, err := c.Insert(ctx, person(i, fmt.Sprintf("person-%02d", i)))
		require.NoError(t, err)
	}
	for id := range uint64(12) {
		_, err := c.Document(ctx, id)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return metrics.GetStats().EvictedFiles > 0
	}, 5*time.Second, 5*time.Millisecond)

	// Unmapped files are mapped again on demand.
	doc, err := c.Document(ctx, 0)
	require.NoError(t, err)
	age, err := doc.IntegerValue("age")
	require.NoError(t, err)
	assert.Equal(t, int64(0), age)
}

func TestDatabase_Closed(t *testing.T) {
	ctx := context.Background()
	db, err := docdb.Open(ctx, t.TempDir(), "testdb",
		docdb.WithMemorySampler(fixedSampler(0)),
		docdb.WithMaxDataFileSize(1<<20),
	)
	require.NoError(t, err)
	c := createPeople(t, db)

	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx))

	_, err = db.Collection("people")
	assert.ErrorIs(t, err, docdb.ErrClosed)
	_, err = db.CreateCollection(ctx, "other", jsondoc.MustSchema(peopleSchema))
	assert.ErrorIs(t, err, docdb.ErrClosed)
	_, err = db.Backup(ctx, blobstore.NewMemoryStore())
	assert.ErrorIs(t, err, docdb.ErrClosed)
	_, err = c.Insert(ctx, person(1, "a"))
	assert.ErrorIs(t, err, docdb.ErrClosed)
}
