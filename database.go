package docdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/docdb/blobstore"
	"github.com/hupe1980/docdb/catalog"
	"github.com/hupe1980/docdb/codec"
	"github.com/hupe1980/docdb/collection"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
	"github.com/hupe1980/docdb/internal/blob"
	"github.com/hupe1980/docdb/internal/monitor"
	"github.com/hupe1980/docdb/internal/resource"
)

// ManifestName is the name of the manifest written into every backup.
const ManifestName = "manifest.json"

// Database is a named set of collections stored in one directory: a SQLite
// catalog plus the data files of every collection.
//
// A background monitor samples the process memory and unmaps least recently
// used data files while it is above the cleanup threshold.
//
// Database is safe for concurrent use.
type Database struct {
	name      string
	dir       string
	opts      options
	logger    *Logger
	metrics   MetricsCollector
	catalog   *catalog.Store
	resources *resource.Controller
	monitor   *monitor.Monitor

	mu          sync.RWMutex
	closed      bool
	collections map[string]*Collection
}

// Open opens the database name in dir, creating it unless
// WithCreateIfMissing(false) is given. Stored collections are reopened and
// their indexes rebuilt from the data files.
//
// Example:
//
//	db, err := docdb.Open(ctx, "./data", "shop",
//	    docdb.WithCompression(true),
//	    docdb.WithLogger(docdb.NewTextLogger(slog.LevelInfo)),
//	)
//	if err != nil {
//	    return err
//	}
//	defer db.Close(ctx)
func Open(ctx context.Context, dir, name string, optFns ...Option) (*Database, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: database directory is empty", ErrInvalidArgument)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)

	if !o.createIfMissing {
		if _, err := os.Stat(filepath.Join(dir, catalog.FileName(name))); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: database %q in %s", ErrNotFound, name, dir)
			}
			return nil, err
		}
	}

	store, err := catalog.Open(dir, name)
	if err != nil {
		return nil, err
	}

	db := &Database{
		name:    name,
		dir:     dir,
		opts:    o,
		logger:  o.logger.WithDatabase(name),
		metrics: o.metricsCollector,
		catalog: store,
		resources: resource.NewController(resource.Config{
			MemoryLimitBytes:     o.memoryLimit,
			MaxBackgroundWorkers: int64(o.backupConcurrency),
			IOLimitBytesPerSec:   o.ioLimit,
		}),
		collections: make(map[string]*Collection),
	}

	defs, err := store.Collections(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	for _, def := range defs {
		c, err := db.restore(ctx, def)
		if err != nil {
			db.closeCollections(ctx)
			_ = store.Close()
			return nil, translateError(err)
		}
		db.collections[def.Name] = c
	}

	db.monitor = monitor.Start(monitor.Config{
		Interval:  o.monitorInterval,
		Threshold: o.memoryCleanupThreshold,
		Sampler:   o.memorySampler,
		Targets:   db.targets,
		Logger:    db.logger.Logger,
	})

	db.logger.InfoContext(ctx, "database opened",
		"dir", dir,
		"collections", len(defs),
	)
	return db, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidArgument, name)
	}
	return nil
}

// restore reopens a stored collection.
func (db *Database) restore(ctx context.Context, def catalog.Collection) (*Collection, error) {
	schema, err := db.opts.schemaFactory.NewSchema(def.SchemaType, def.Schema)
	if err != nil {
		return nil, fmt.Errorf("decoding schema of %q: %w", def.Name, err)
	}
	c, err := db.open(ctx, def.Name, schema, def.Indexes)

	var docs uint64
	if err == nil {
		docs = c.Count()
	}
	db.logger.LogRecovery(ctx, def.Name, docs, err)
	return c, err
}

func (db *Database) open(ctx context.Context, name string, schema document.Schema, indexes []index.Info) (*Collection, error) {
	c, err := collection.Open(ctx, collection.Config{
		Name:         name,
		Schema:       schema,
		Indexes:      indexes,
		Catalog:      db.catalog.FileCatalog(name),
		DeleteVector: db.catalog.DeleteVector(name),
		Blob: blob.Config{
			MaxDataFileSize: db.opts.maxDataFileSize,
			Codec:           db.opts.codec,
			Synchronous:     db.opts.synchronous,
			ReaderCacheSize: db.opts.readerCacheSize,
			Resources:       db.resources,
		},
		Compress: db.opts.compress,
		Logger:   db.logger.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Collection{c: c, logger: db.logger, metrics: db.metrics}, nil
}

// Name returns the database name.
func (db *Database) Name() string {
	return db.name
}

// CreateCollection creates a collection of documents described by schema,
// with the given secondary indexes.
//
// Example:
//
//	schema, _ := jsondoc.NewSchema([]byte(`{"fields":[
//	    {"name":"age","type":"int32"},
//	    {"name":"name","type":"string"}
//	]}`))
//	people, err := db.CreateCollection(ctx, "people", schema,
//	    index.Info{Name: "age_vec", Type: index.TypeVector, Column: "age", Ascending: true},
//	    index.Info{Name: "name_bmp", Type: index.TypeInvertedBitmap, Column: "name"},
//	)
func (db *Database) CreateCollection(ctx context.Context, name string, schema document.Schema, indexes ...index.Info) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: collection %q has no schema", ErrInvalidArgument, name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	if _, ok := db.collections[name]; ok {
		return nil, fmt.Errorf("%w: collection %q", ErrExists, name)
	}
	if _, err := index.NewManager(indexes, document.Columns(schema)); err != nil {
		return nil, translateError(err)
	}

	def := catalog.Collection{
		Name:       name,
		SchemaType: schema.Type(),
		Schema:     schema.Bytes(),
		Indexes:    indexes,
	}
	if err := db.catalog.CreateCollection(ctx, def); err != nil {
		return nil, translateError(err)
	}

	c, err := db.open(ctx, name, schema, indexes)
	if err != nil {
		_ = db.catalog.DeleteCollection(ctx, name)
		return nil, translateError(err)
	}
	db.collections[name] = c

	db.logger.InfoContext(ctx, "collection created",
		"collection", name,
		"indexes", len(indexes),
	)
	return c, nil
}

// Collection returns the named collection.
func (db *Database) Collection(name string) (*Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	c, ok := db.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: collection %q", ErrNotFound, name)
	}
	return c, nil
}

// Collections returns the names of all collections in sorted order.
func (db *Database) Collections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DropCollection closes the named collection and deletes its definition
// and data files.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	c, ok := db.collections[name]
	if !ok {
		return fmt.Errorf("%w: collection %q", ErrNotFound, name)
	}

	files, err := db.catalog.FileCatalog(name).DataFiles(ctx)
	if err != nil {
		return translateError(err)
	}
	if err := c.c.Close(ctx); err != nil {
		return translateError(err)
	}
	delete(db.collections, name)

	if err := db.catalog.DeleteCollection(ctx, name); err != nil {
		return translateError(err)
	}
	for _, fi := range files {
		if err := os.Remove(fi.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	db.logger.InfoContext(ctx, "collection dropped",
		"collection", name,
		"files", len(files),
	)
	return nil
}

// sorted returns the open collections ordered by name.
func (db *Database) sorted() ([]*Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	out := make([]*Collection, 0, len(db.collections))
	for _, c := range db.collections {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Collection) int { return strings.Compare(a.Name(), b.Name()) })
	return out, nil
}

func (db *Database) targets() []monitor.Target {
	cols, err := db.sorted()
	if err != nil {
		return nil
	}
	out := make([]monitor.Target, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// Stats describes the state of a database.
type Stats struct {
	Collections int
	Documents   uint64
	// MappedBytes is the size of the data files currently mapped.
	MappedBytes     int64
	PeakMappedBytes int64
	// MappedBytesLimit is 0 when mapped memory is unlimited.
	MappedBytesLimit int64
}

// Stats returns a snapshot of the database state.
func (db *Database) Stats() (Stats, error) {
	cols, err := db.sorted()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Collections:      len(cols),
		MappedBytes:      db.resources.MemoryUsage(),
		PeakMappedBytes:  db.resources.PeakMemoryUsage(),
		MappedBytesLimit: db.resources.MemoryLimit(),
	}
	for _, c := range cols {
		s.Documents += c.Count()
	}
	return s, nil
}

// BackupInfo describes a completed backup.
type BackupInfo struct {
	ID string
	// Prefix is the blob name prefix every file of the backup is stored
	// under.
	Prefix    string
	Files     int
	Bytes     int64
	CreatedAt time.Time
}

type manifest struct {
	ID          string               `json:"id"`
	Database    string               `json:"database"`
	CreatedAt   time.Time            `json:"created_at"`
	Catalog     string               `json:"catalog"`
	Collections []manifestCollection `json:"collections"`
}

type manifestCollection struct {
	Name      string         `json:"name"`
	Documents uint64         `json:"documents"`
	Files     []manifestFile `json:"files"`
}

type manifestFile struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// Backup copies the database to store under "<database>/<backup id>/": the
// data files of every collection, a snapshot of the catalog and a
// manifest. Documents stored before Backup is called are part of it.
//
// Collections are archived in parallel, see WithBackupConcurrency.
//
// Example with a local directory:
//
//	info, err := db.Backup(ctx, blobstore.NewLocalStore("/mnt/backups"))
//
// Example with S3:
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("docdb/"))
//	info, err := db.Backup(ctx, store)
func (db *Database) Backup(ctx context.Context, store blobstore.Store) (BackupInfo, error) {
	start := time.Now()
	info := BackupInfo{ID: uuid.NewString(), CreatedAt: start.UTC()}
	info.Prefix = path.Join(db.name, info.ID)

	err := db.backup(ctx, store, &info)
	err = translateError(err)

	db.metrics.RecordBackup(info.Files, info.Bytes, time.Since(start), err)
	db.logger.LogBackup(ctx, info.ID, info.Files, err)
	if err != nil {
		return BackupInfo{}, err
	}
	return info, nil
}

func (db *Database) backup(ctx context.Context, store blobstore.Store, info *BackupInfo) error {
	cols, err := db.sorted()
	if err != nil {
		return err
	}

	m := manifest{
		ID:          info.ID,
		Database:    db.name,
		CreatedAt:   info.CreatedAt,
		Collections: make([]manifestCollection, len(cols)),
	}

	// Worker slots are shared by concurrent backups.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			if err := db.resources.AcquireBackground(gctx); err != nil {
				return err
			}
			defer db.resources.ReleaseBackground()

			if err := c.Seal(gctx); err != nil {
				return err
			}
			files, err := c.Archive(gctx, store, info.Prefix)
			if err != nil {
				return err
			}
			mc := manifestCollection{Name: c.Name(), Documents: c.Count(), Files: make([]manifestFile, len(files))}
			for j, f := range files {
				mc.Files[j] = manifestFile{Name: path.Base(f.Name), Bytes: f.Bytes}
			}
			m.Collections[i] = mc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.Catalog = catalog.FileName(db.name)
	n, err := db.archiveCatalog(ctx, store, path.Join(info.Prefix, m.Catalog))
	if err != nil {
		return err
	}
	info.Files, info.Bytes = 1, n
	for _, mc := range m.Collections {
		for _, f := range mc.Files {
			info.Files++
			info.Bytes += f.Bytes
		}
	}

	data, err := codec.GoJSON{}.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := store.Put(ctx, path.Join(info.Prefix, ManifestName), data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return db.catalog.RecordBackup(ctx, catalog.Backup{
		ID:        info.ID,
		Target:    info.Prefix,
		Files:     info.Files,
		Bytes:     info.Bytes,
		CreatedAt: info.CreatedAt,
	})
}

// archiveCatalog uploads a consistent snapshot of the catalog.
func (db *Database) archiveCatalog(ctx context.Context, store blobstore.Store, name string) (int64, error) {
	tmp, err := os.MkdirTemp("", "docdb-backup-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmp)

	p := filepath.Join(tmp, catalog.FileName(db.name))
	if err := db.catalog.Snapshot(ctx, p); err != nil {
		return 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	n, err := blobstore.Upload(ctx, store, name, f, st.Size())
	if err != nil {
		return n, fmt.Errorf("archiving catalog: %w", err)
	}
	return n, nil
}

// Backups returns the recorded backups, newest first.
func (db *Database) Backups(ctx context.Context) ([]BackupInfo, error) {
	db.mu.RLock()
	closed := db.closed
	db.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	backups, err := db.catalog.Backups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BackupInfo, len(backups))
	for i, b := range backups {
		out[i] = BackupInfo{ID: b.ID, Prefix: b.Target, Files: b.Files, Bytes: b.Bytes, CreatedAt: b.CreatedAt}
	}
	return out, nil
}

func (db *Database) closeCollections(ctx context.Context) error {
	var errs error
	for name, c := range db.collections {
		errs = errors.Join(errs, c.c.Close(ctx))
		delete(db.collections, name)
	}
	return errs
}

// Close stops the memory monitor, closes every collection and the catalog.
// It is idempotent.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	db.monitor.Stop()

	db.mu.Lock()
	err := db.closeCollections(ctx)
	db.mu.Unlock()

	err = errors.Join(err, db.catalog.Close())
	if err != nil {
		db.logger.ErrorContext(ctx, "database close failed", "error", err)
		return err
	}
	db.logger.InfoContext(ctx, "database closed")
	return nil
}
