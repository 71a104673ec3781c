package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hupe1980/docdb/catalog/migrations"
	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/index"
	"github.com/hupe1980/docdb/internal/blob"
)

var (
	// ErrNotFound is returned when a collection does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrExists is returned when a collection name is already taken.
	ErrExists = errors.New("catalog: already exists")
)

// Collection is the persisted definition of a collection.
type Collection struct {
	Name       string
	SchemaType document.SchemaType
	Schema     []byte
	Indexes    []index.Info
	CreatedAt  time.Time
}

// Backup records a completed backup.
type Backup struct {
	ID        string
	Target    string
	Files     int
	Bytes     int64
	CreatedAt time.Time
}

// Store persists collection definitions and data file inventories in a
// SQLite database next to the data files.
type Store struct {
	db   *sql.DB
	dir  string
	name string
	path string
}

// FileName returns the name of the catalog file of database name.
func FileName(name string) string {
	return name + ".dat"
}

// Open opens or creates the catalog of database name in dir.
func Open(dir, name string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	path := filepath.Join(dir, FileName(name))

	// WAL for concurrent readers, foreign keys on every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dir: dir, name: name, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Dir returns the database directory.
func (s *Store) Dir() string {
	return s.dir
}

// migrate applies every embedded migration newer than the recorded schema
// version, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.inTx(context.Background(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(string(content)); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		}); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateCollection persists a new collection together with its indexes.
func (s *Store) CreateCollection(ctx context.Context, c Collection) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE name = ?", c.Name).Scan(&n); err != nil {
			return fmt.Errorf("checking collection: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: collection %q", ErrExists, c.Name)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, schema_type, schema, created_at) VALUES (?, ?, ?, ?)",
			c.Name, int32(c.SchemaType), c.Schema, time.Now().UTC()); err != nil {
			return fmt.Errorf("saving collection: %w", err)
		}

		for i, info := range c.Indexes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO indexes (collection, name, type, column_name, ascending, position)
				VALUES (?, ?, ?, ?, ?, ?)
			`, c.Name, info.Name, int32(info.Type), info.Column, info.Ascending, i); err != nil {
				return fmt.Errorf("saving index %q: %w", info.Name, err)
			}
		}
		return nil
	})
}

// DeleteCollection removes a collection and its file inventory. The data
// files themselves are left to the caller.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: collection %q", ErrNotFound, name)
	}
	return nil
}

// Collection returns the definition of the named collection.
func (s *Store) Collection(ctx context.Context, name string) (Collection, error) {
	var c Collection
	var schemaType int32
	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT name, schema_type, schema, created_at FROM collections WHERE name = ?", name).
		Scan(&c.Name, &schemaType, &c.Schema, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Collection{}, fmt.Errorf("%w: collection %q", ErrNotFound, name)
		}
		return Collection{}, fmt.Errorf("scanning collection: %w", err)
	}
	c.SchemaType = document.SchemaType(schemaType)
	c.CreatedAt = createdAt.Time

	c.Indexes, err = s.indexes(ctx, name)
	if err != nil {
		return Collection{}, err
	}
	return c, nil
}

// Collections returns all collections ordered by name.
func (s *Store) Collections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]Collection, 0, len(names))
	for _, name := range names {
		c, err := s.Collection(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) indexes(ctx context.Context, collection string) ([]index.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, column_name, ascending FROM indexes
		WHERE collection = ? ORDER BY position
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	defer rows.Close()

	var out []index.Info
	for rows.Next() {
		var info index.Info
		var typ int32
		if err := rows.Scan(&info.Name, &typ, &info.Column, &info.Ascending); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		info.Type = index.IndexType(typ)
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecordBackup stores a completed backup.
func (s *Store) RecordBackup(ctx context.Context, b Backup) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO backups (id, target, files, bytes, created_at) VALUES (?, ?, ?, ?, ?)",
		b.ID, b.Target, b.Files, b.Bytes, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving backup: %w", err)
	}
	return nil
}

// Backups returns recorded backups, newest first.
func (s *Store) Backups(ctx context.Context) ([]Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, target, files, bytes, created_at FROM backups ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		var b Backup
		if err := rows.Scan(&b.ID, &b.Target, &b.Files, &b.Bytes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning backup: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Snapshot writes a consistent copy of the catalog to path, which must not
// exist yet.
func (s *Store) Snapshot(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("snapshotting catalog: %w", err)
	}
	return nil
}

// FileCatalog returns the data file inventory of a collection.
func (s *Store) FileCatalog(collection string) blob.FileCatalog {
	return &fileCatalog{store: s, collection: collection}
}
