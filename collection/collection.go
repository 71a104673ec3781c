package collection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"slices"
	"sync"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/blobstore"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
	"github.com/hupe1980/docdb/internal/blob"
	"github.com/hupe1980/docdb/internal/fs"
)

// rebuildBatchSize is the number of stored documents indexed at once while
// opening a collection.
const rebuildBatchSize = 10000

// Config configures a Collection.
type Config struct {
	Name    string
	Schema  document.Schema
	Indexes []index.Info
	// Catalog is the data file inventory of the collection.
	Catalog blob.FileCatalog
	Blob    blob.Config
	// DeleteVector persists hidden IDs. Defaults to a MemoryDeleteVector.
	DeleteVector DeleteVectorStore
	// Compress is the default for inserts without WithCompression.
	Compress bool
	Logger   *slog.Logger
}

// Collection stores the documents of one schema.
type Collection struct {
	name     string
	schema   document.Schema
	compress bool
	fsys     fs.FileSystem
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	ids     *IDGenerator
	indexes *index.Manager
	blobs   *blob.Manager
	docs    []blob.Metadata

	// deleted IDs have a record in the blob log, unwritten IDs do not.
	// tombstones is their union.
	deletes    DeleteVectorStore
	deleted    *bitmap.Bitmap
	unwritten  *bitmap.Bitmap
	tombstones *bitmap.Bitmap
	// writeErr is set once hidden IDs could not be persisted. Writes fail
	// from then on.
	writeErr error
}

// Open opens the collection described by cfg and rebuilds its indexes from
// the blob log.
func Open(ctx context.Context, cfg Config) (*Collection, error) {
	if cfg.Name == "" || cfg.Schema == nil || cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: collection needs a name, a schema and a catalog", index.ErrInvalidArgument)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := cfg.Logger.With("collection", cfg.Name)
	if cfg.Blob.Logger == nil {
		cfg.Blob.Logger = logger
	}
	if cfg.Blob.FS == nil {
		cfg.Blob.FS = fs.Default
	}
	if cfg.DeleteVector == nil {
		cfg.DeleteVector = NewMemoryDeleteVector()
	}

	indexes, err := index.NewManager(cfg.Indexes, document.Columns(cfg.Schema))
	if err != nil {
		return nil, fmt.Errorf("creating indexes of %q: %w", cfg.Name, err)
	}
	deleted, unwritten, err := cfg.DeleteVector.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading delete vector of %q: %w", cfg.Name, err)
	}
	blobs, err := blob.New(ctx, cfg.Catalog, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("opening blob log of %q: %w", cfg.Name, err)
	}

	c := &Collection{
		name:       cfg.Name,
		schema:     cfg.Schema,
		compress:   cfg.Compress,
		fsys:       cfg.Blob.FS,
		logger:     logger,
		ids:        NewIDGenerator(0),
		indexes:    indexes,
		blobs:      blobs,
		deletes:    cfg.DeleteVector,
		deleted:    deleted,
		unwritten:  unwritten,
		tombstones: bitmap.Or(deleted, unwritten),
	}
	if err := c.rebuild(ctx); err != nil {
		_ = blobs.Close(ctx)
		return nil, err
	}

	logger.Debug("collection opened",
		slog.Int("documents", len(c.docs)),
		slog.Uint64("hidden", c.tombstones.Cardinality()),
		slog.Int("indexes", indexes.Len()),
	)
	return c, nil
}

func (c *Collection) rebuild(ctx context.Context) error {
	batch := make([]document.Document, 0, rebuildBatchSize)
	mds := make([]blob.Metadata, 0, rebuildBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.index(batch); err != nil {
			return err
		}
		c.docs = append(c.docs, mds...)
		batch, mds = batch[:0], mds[:0]
		return nil
	}

	// IDs of failed writes have no record; they are skipped so that every
	// record gets back the ID it was stored under.
	skipUnwritten := func() error {
		next := uint64(len(c.docs) + len(batch))
		if !c.unwritten.Contains(next) {
			return nil
		}
		if err := flush(); err != nil {
			return err
		}
		n := uint64(0)
		for c.unwritten.Contains(next + n) {
			n++
		}
		c.indexes.SkipDocuments(next, n)
		if got := c.ids.Reserve(n); got != next {
			return fmt.Errorf("%w: reserved ID %d, skipped from %d", ErrInconsistent, got, next)
		}
		for range n {
			c.docs = append(c.docs, blob.Metadata{FileKey: -1})
		}
		return nil
	}

	err := c.blobs.Scan(ctx, func(md blob.Metadata, raw []byte) error {
		if err := skipUnwritten(); err != nil {
			return err
		}
		doc, err := c.schema.NewDocument(bytes.Clone(raw))
		if err != nil {
			return fmt.Errorf("%w: file %d offset %d: %w", ErrInconsistent, md.FileKey, md.Offset, err)
		}
		batch = append(batch, doc)
		mds = append(mds, md)
		if len(batch) == rebuildBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuilding %q: %w", c.name, err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("rebuilding %q: %w", c.name, err)
	}
	if err := skipUnwritten(); err != nil {
		return fmt.Errorf("rebuilding %q: %w", c.name, err)
	}
	if last, ok := c.tombstones.Max(); ok && last >= uint64(len(c.docs)) {
		return fmt.Errorf("%w: rebuilding %q: hidden ID %d beyond %d documents", ErrInconsistent, c.name, last, len(c.docs))
	}
	return nil
}

// index assigns the next IDs to docs. Callers hold the write lock or own
// the collection exclusively.
func (c *Collection) index(docs []document.Document) error {
	first := c.ids.Next()
	if _, err := c.indexes.IndexDocuments(first, docs); err != nil {
		return err
	}
	if got := c.ids.Reserve(uint64(len(docs))); got != first {
		return fmt.Errorf("%w: reserved ID %d, indexed from %d", ErrInconsistent, got, first)
	}
	return nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Schema returns the collection schema.
func (c *Collection) Schema() document.Schema {
	return c.schema
}

// Indexes returns the indexes in creation order.
func (c *Collection) Indexes() []index.Stat {
	return c.indexes.Stats()
}

// Insert stores a single encoded document and returns its ID.
func (c *Collection) Insert(ctx context.Context, raw []byte, opts ...WriteOption) (uint64, error) {
	return c.MultiInsert(ctx, [][]byte{raw}, opts...)
}

// MultiInsert stores encoded documents and returns the ID of the first one;
// the others follow contiguously. Either every document is validated and
// indexed, or none is.
func (c *Collection) MultiInsert(ctx context.Context, raws [][]byte, opts ...WriteOption) (uint64, error) {
	o := writeOptions{compress: c.compress}
	for _, opt := range opts {
		opt(&o)
	}

	docs := make([]document.Document, len(raws))
	for i, raw := range raws {
		doc, err := c.schema.NewDocument(raw)
		if err != nil {
			return 0, &DocumentError{Index: i, Err: err}
		}
		if o.verify {
			if err := doc.Verify(); err != nil {
				return 0, &DocumentError{Index: i, Err: err}
			}
		}
		docs[i] = doc
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return 0, err
	}
	first := c.ids.Next()
	if len(docs) == 0 {
		return first, nil
	}
	if err := c.index(docs); err != nil {
		return 0, err
	}

	mds, err := c.blobs.MultiPut(ctx, raws, o.compress)
	if err != nil {
		return 0, c.hideFailedWrite(ctx, first, uint64(len(docs)), mds, err)
	}
	c.docs = append(c.docs, mds...)
	return first, nil
}

func (c *Collection) writable() error {
	if c.closed {
		return ErrClosed
	}
	if c.writeErr != nil {
		return fmt.Errorf("%w: delete vector not saved: %w", ErrInconsistent, c.writeErr)
	}
	return nil
}

// hideFailedWrite hides the n IDs from first of a failed write. written holds
// the records that reached the log before the failure.
func (c *Collection) hideFailedWrite(ctx context.Context, first, n uint64, written []blob.Metadata, cause error) error {
	w := uint64(len(written))
	c.docs = append(c.docs, written...)
	for range n - w {
		c.docs = append(c.docs, blob.Metadata{FileKey: -1})
	}
	c.deleted.AddRange(first, first+w)
	c.unwritten.AddRange(first+w, first+n)
	c.tombstones.AddRange(first, first+n)

	err := fmt.Errorf("storing documents %d..%d: %w", first, first+n-1, cause)
	c.logger.Warn("documents hidden after failed write",
		slog.Uint64("first_id", first),
		slog.Uint64("count", n),
		slog.Uint64("written", w),
		slog.Any("error", cause),
	)
	if serr := c.deletes.Save(context.WithoutCancel(ctx), c.deleted, c.unwritten); serr != nil {
		c.writeErr = serr
		c.logger.Error("delete vector not saved", slog.Any("error", serr))
		return errors.Join(err, fmt.Errorf("saving delete vector: %w", serr))
	}
	return err
}

// Delete hides the documents ids. Their records stay in the blob log.
func (c *Collection) Delete(ctx context.Context, ids ...uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return err
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	deleted := c.deleted.Clone()
	for _, id := range slices.Compact(sorted) {
		if _, err := c.metadataLocked(id); err != nil {
			return err
		}
		deleted.Add(id)
	}
	if len(sorted) == 0 {
		return nil
	}
	if err := c.deletes.Save(ctx, deleted, c.unwritten); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	c.deleted = deleted
	c.tombstones = bitmap.Or(deleted, c.unwritten)
	return nil
}

func (c *Collection) live(b *bitmap.Bitmap) *bitmap.Bitmap {
	if c.tombstones.IsEmpty() {
		return b
	}
	return bitmap.AndNot(b, c.tombstones)
}

// Filter returns the IDs of the documents matching every constraint. With no
// constraints it returns every document.
func (c *Collection) Filter(constraints []index.Constraint) (*bitmap.Bitmap, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	if len(constraints) == 0 {
		all := bitmap.New()
		all.AddRange(0, uint64(len(c.docs)))
		return c.live(all), nil
	}
	result, err := c.indexes.Filter(constraints)
	if err != nil {
		return nil, err
	}
	return c.live(result), nil
}

// FilterRange returns the IDs of the documents between lower and upper.
func (c *Collection) FilterRange(lower, upper index.Constraint) (*bitmap.Bitmap, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	result, err := c.indexes.FilterRange(lower, upper)
	if err != nil {
		return nil, err
	}
	return c.live(result), nil
}

// TryGetBestIndex returns the index Filter would use for op on column.
func (c *Collection) TryGetBestIndex(column string, op index.Operator) (index.Stat, bool) {
	return c.indexes.TryGetBestIndex(column, op)
}

// Count returns the number of live documents.
func (c *Collection) Count() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.docs)) - c.tombstones.Cardinality()
}

func (c *Collection) metadata(id uint64) (blob.Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadataLocked(id)
}

func (c *Collection) metadataLocked(id uint64) (blob.Metadata, error) {
	if c.closed {
		return blob.Metadata{}, ErrClosed
	}
	if id >= uint64(len(c.docs)) || c.tombstones.Contains(id) {
		return blob.Metadata{}, fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
	}
	return c.docs[id], nil
}

func (c *Collection) checkIDs(ids []uint64) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range ids {
		if _, err := c.metadataLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// Raw returns the encoded document id, reusing buf when it is large enough.
func (c *Collection) Raw(ctx context.Context, id uint64, buf []byte) ([]byte, error) {
	md, err := c.metadata(id)
	if err != nil {
		return nil, err
	}
	raw, err := c.blobs.Get(ctx, md, buf)
	if err != nil {
		return nil, fmt.Errorf("reading document %d: %w", id, err)
	}
	return raw, nil
}

// Document returns the document id.
func (c *Collection) Document(ctx context.Context, id uint64) (document.Document, error) {
	raw, err := c.Raw(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	doc, err := c.schema.NewDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: document %d: %w", ErrInconsistent, id, err)
	}
	return doc, nil
}

func (c *Collection) resolve(ctx context.Context, id uint64, column string) (document.Document, string, error) {
	doc, err := c.Document(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return document.Resolve(doc, document.SplitPath(column))
}

// IntegerField returns the integer value of column in document id.
func (c *Collection) IntegerField(ctx context.Context, id uint64, column string) (int64, error) {
	if _, err := c.metadata(id); err != nil {
		return 0, err
	}
	if v, ok := c.indexes.TryGetIntegerValue(column, id); ok {
		return v, nil
	}
	doc, leaf, err := c.resolve(ctx, id, column)
	if err != nil {
		return 0, err
	}
	return doc.IntegerValue(leaf)
}

// DoubleField returns the floating point value of column in document id.
func (c *Collection) DoubleField(ctx context.Context, id uint64, column string) (float64, error) {
	if _, err := c.metadata(id); err != nil {
		return 0, err
	}
	if v, ok := c.indexes.TryGetDoubleValue(column, id); ok {
		return v, nil
	}
	doc, leaf, err := c.resolve(ctx, id, column)
	if err != nil {
		return 0, err
	}
	return doc.FloatValue(leaf)
}

// StringField returns the string value of column in document id. Missing
// strings are document.NullString.
func (c *Collection) StringField(ctx context.Context, id uint64, column string) (string, error) {
	if _, err := c.metadata(id); err != nil {
		return "", err
	}
	if v, ok := c.indexes.TryGetStringValue(column, id); ok {
		return v, nil
	}
	doc, leaf, err := c.resolve(ctx, id, column)
	if err != nil {
		return "", err
	}
	return doc.StringValue(leaf)
}

// BlobField returns the blob value of column in document id.
func (c *Collection) BlobField(ctx context.Context, id uint64, column string) ([]byte, error) {
	if _, err := c.metadata(id); err != nil {
		return nil, err
	}
	if v, ok := c.indexes.TryGetBlobValue(column, id); ok {
		return v, nil
	}
	doc, leaf, err := c.resolve(ctx, id, column)
	if err != nil {
		return nil, err
	}
	return doc.BlobValue(leaf)
}

// IntegerFields returns the integer values of column for ids.
func (c *Collection) IntegerFields(ctx context.Context, ids []uint64, column string) ([]int64, error) {
	if err := c.checkIDs(ids); err != nil {
		return nil, err
	}
	out := make([]int64, len(ids))
	if c.indexes.TryGetIntegerVector(column, ids, out) {
		return out, nil
	}
	for i, id := range ids {
		doc, leaf, err := c.resolve(ctx, id, column)
		if err != nil {
			return nil, err
		}
		if out[i], err = doc.IntegerValue(leaf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DoubleFields returns the floating point values of column for ids.
func (c *Collection) DoubleFields(ctx context.Context, ids []uint64, column string) ([]float64, error) {
	if err := c.checkIDs(ids); err != nil {
		return nil, err
	}
	out := make([]float64, len(ids))
	if c.indexes.TryGetDoubleVector(column, ids, out) {
		return out, nil
	}
	for i, id := range ids {
		doc, leaf, err := c.resolve(ctx, id, column)
		if err != nil {
			return nil, err
		}
		if out[i], err = doc.FloatValue(leaf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UnmapLRUDataFiles releases mapped data files that are not in use. It
// returns the number of files unmapped.
func (c *Collection) UnmapLRUDataFiles() int {
	return c.blobs.UnmapLRUDataFiles()
}

// Seal moves every stored document into sealed data files, so that a
// following Archive copies all of them.
func (c *Collection) Seal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.blobs.Seal(ctx)
}

// ArchivedFile describes a data file handled by Archive.
type ArchivedFile struct {
	Name  string
	Bytes int64
	// Skipped is set when the store already held the file.
	Skipped bool
}

// Archive copies every sealed data file to store under prefix. Files the
// store already holds with the same size are skipped.
func (c *Collection) Archive(ctx context.Context, store blobstore.Store, prefix string) ([]ArchivedFile, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	files, err := c.blobs.SealedFiles(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ArchivedFile, 0, len(files))
	for _, fi := range files {
		af := ArchivedFile{Name: path.Join(prefix, fi.Name), Bytes: fi.DataLength}

		existing, err := store.Open(ctx, af.Name)
		switch {
		case err == nil:
			size := existing.Size()
			_ = existing.Close()
			if size == fi.DataLength {
				af.Skipped = true
				out = append(out, af)
				continue
			}
		case !errors.Is(err, blobstore.ErrNotFound):
			return out, fmt.Errorf("archiving %s: %w", fi.Name, err)
		}

		if err := c.upload(ctx, store, af.Name, fi); err != nil {
			return out, fmt.Errorf("archiving %s: %w", fi.Name, err)
		}
		out = append(out, af)
	}
	return out, nil
}

func (c *Collection) upload(ctx context.Context, store blobstore.Store, name string, fi blob.FileInfo) error {
	f, err := c.fsys.OpenFile(fi.Path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = blobstore.Upload(ctx, store, name, f, fi.DataLength)
	return err
}

// Close persists the blob log state and unmaps every data file.
func (c *Collection) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.blobs.Close(ctx)
}
