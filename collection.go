package docdb

import (
	"context"
	"time"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/blobstore"
	"github.com/hupe1980/docdb/collection"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
)

// Collection is a handle to a collection of a Database. Errors returned by
// its methods match the sentinel errors of this package.
//
// Collection is safe for concurrent use.
type Collection struct {
	c       *collection.Collection
	logger  *Logger
	metrics MetricsCollector
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.c.Name()
}

// Schema returns the collection schema.
func (c *Collection) Schema() document.Schema {
	return c.c.Schema()
}

// Indexes returns the indexes in creation order.
func (c *Collection) Indexes() []index.Stat {
	return c.c.Indexes()
}

// Count returns the number of stored documents.
func (c *Collection) Count() uint64 {
	return c.c.Count()
}

// Insert stores an encoded document and returns its ID.
func (c *Collection) Insert(ctx context.Context, raw []byte, opts ...collection.WriteOption) (uint64, error) {
	start := time.Now()

	id, err := c.c.Insert(ctx, raw, opts...)
	err = translateError(err)

	c.metrics.RecordInsert(time.Since(start), err)
	c.logger.LogInsert(ctx, c.Name(), id, err)
	return id, err
}

// MultiInsert stores encoded documents and returns the ID of the first one.
// The others follow contiguously.
//
// Every document is decoded and validated before anything is written. If
// storing fails afterwards, none of the documents becomes visible.
func (c *Collection) MultiInsert(ctx context.Context, raws [][]byte, opts ...collection.WriteOption) (uint64, error) {
	start := time.Now()

	id, err := c.c.MultiInsert(ctx, raws, opts...)
	err = translateError(err)

	failed := 0
	if err != nil {
		failed = len(raws)
	}
	c.metrics.RecordBatchInsert(len(raws), failed, time.Since(start))
	c.logger.LogBatchInsert(ctx, c.Name(), len(raws), err)
	return id, err
}

// Delete removes the documents ids from every result. Deleted IDs are never
// reused and keep failing with ErrNotFound after the database is reopened.
func (c *Collection) Delete(ctx context.Context, ids ...uint64) error {
	err := translateError(c.c.Delete(ctx, ids...))
	c.logger.LogDelete(ctx, c.Name(), len(ids), err)
	return err
}

// Filter returns the IDs of the documents matching every constraint. With no
// constraints it returns every document.
func (c *Collection) Filter(ctx context.Context, constraints ...index.Constraint) (*bitmap.Bitmap, error) {
	start := time.Now()

	ids, err := c.c.Filter(constraints)
	err = translateError(err)

	var matched uint64
	if err == nil {
		matched = ids.Cardinality()
	}
	c.metrics.RecordFilter(len(constraints), matched, time.Since(start), err)
	c.logger.LogFilter(ctx, c.Name(), len(constraints), matched, err)
	return ids, err
}

// FilterRange returns the IDs of the documents whose column lies between
// lower and upper. Both constraints must name the same column.
func (c *Collection) FilterRange(ctx context.Context, lower, upper index.Constraint) (*bitmap.Bitmap, error) {
	start := time.Now()

	ids, err := c.c.FilterRange(lower, upper)
	err = translateError(err)

	var matched uint64
	if err == nil {
		matched = ids.Cardinality()
	}
	c.metrics.RecordFilter(2, matched, time.Since(start), err)
	c.logger.LogFilter(ctx, c.Name(), 2, matched, err)
	return ids, err
}

// TryGetBestIndex returns the index Filter would use for op on column.
func (c *Collection) TryGetBestIndex(column string, op index.Operator) (index.Stat, bool) {
	return c.c.TryGetBestIndex(column, op)
}

// Document returns the document with the given ID.
func (c *Collection) Document(ctx context.Context, id uint64) (document.Document, error) {
	start := time.Now()

	doc, err := c.c.Document(ctx, id)
	err = translateError(err)

	c.metrics.RecordRead(time.Since(start), err)
	return doc, err
}

// IntegerField returns the integer value of column in document id. Column
// is a dotted path into nested documents.
func (c *Collection) IntegerField(ctx context.Context, id uint64, column string) (int64, error) {
	v, err := c.c.IntegerField(ctx, id, column)
	return v, translateError(err)
}

// DoubleField returns the floating point value of column in document id.
func (c *Collection) DoubleField(ctx context.Context, id uint64, column string) (float64, error) {
	v, err := c.c.DoubleField(ctx, id, column)
	return v, translateError(err)
}

// StringField returns the string value of column in document id.
func (c *Collection) StringField(ctx context.Context, id uint64, column string) (string, error) {
	v, err := c.c.StringField(ctx, id, column)
	return v, translateError(err)
}

// BlobField returns the blob value of column in document id.
func (c *Collection) BlobField(ctx context.Context, id uint64, column string) ([]byte, error) {
	v, err := c.c.BlobField(ctx, id, column)
	return v, translateError(err)
}

// IntegerFields returns the integer values of column for ids, in order.
func (c *Collection) IntegerFields(ctx context.Context, ids []uint64, column string) ([]int64, error) {
	v, err := c.c.IntegerFields(ctx, ids, column)
	return v, translateError(err)
}

// DoubleFields returns the floating point values of column for ids, in
// order.
func (c *Collection) DoubleFields(ctx context.Context, ids []uint64, column string) ([]float64, error) {
	v, err := c.c.DoubleFields(ctx, ids, column)
	return v, translateError(err)
}

// UnmapLRUDataFiles unmaps least recently used data files that are not in
// use and returns how many were released.
func (c *Collection) UnmapLRUDataFiles() int {
	n := c.c.UnmapLRUDataFiles()
	if n > 0 {
		c.metrics.RecordEviction(n)
		c.logger.LogEviction(context.Background(), c.Name(), n)
	}
	return n
}

// Seal rotates the collection to a new data file so that every stored
// document lives in a sealed file.
func (c *Collection) Seal(ctx context.Context) error {
	err := translateError(c.c.Seal(ctx))
	c.logger.LogRotation(ctx, c.Name(), err)
	return err
}

// Archive copies the sealed data files of the collection to store under
// prefix. Files already present with the same size are skipped.
func (c *Collection) Archive(ctx context.Context, store blobstore.Store, prefix string) ([]collection.ArchivedFile, error) {
	files, err := c.c.Archive(ctx, store, prefix)
	return files, translateError(err)
}
