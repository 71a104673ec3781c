package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/docdb/internal/blob"
)

// fileCatalog implements blob.FileCatalog on the data_files table.
type fileCatalog struct {
	store      *Store
	collection string
}

var _ blob.FileCatalog = (*fileCatalog)(nil)

func (c *fileCatalog) info(key int32, name string, length int64) blob.FileInfo {
	return blob.FileInfo{
		Key:        key,
		Name:       name,
		Path:       filepath.Join(c.store.dir, name),
		DataLength: length,
	}
}

func (c *fileCatalog) insert(ctx context.Context, tx *sql.Tx, key int32) (blob.FileInfo, error) {
	name := blob.DataFileName(c.store.name, c.collection, key)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO data_files (collection, file_key, file_name, data_length) VALUES (?, ?, ?, -1)",
		c.collection, key, name); err != nil {
		return blob.FileInfo{}, fmt.Errorf("registering data file %s: %w", name, err)
	}
	return c.info(key, name, -1), nil
}

func (c *fileCatalog) CurrentDataFile(ctx context.Context) (blob.FileInfo, error) {
	var fi blob.FileInfo
	err := c.store.inTx(ctx, func(tx *sql.Tx) error {
		var key int32
		var name string
		var length int64
		err := tx.QueryRowContext(ctx, `
			SELECT file_key, file_name, data_length FROM data_files
			WHERE collection = ? ORDER BY file_key DESC LIMIT 1
		`, c.collection).Scan(&key, &name, &length)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			fi, err = c.insert(ctx, tx, 0)
			return err
		case err != nil:
			return fmt.Errorf("reading current data file: %w", err)
		}
		fi = c.info(key, name, length)
		return nil
	})
	return fi, err
}

func (c *fileCatalog) NextDataFile(ctx context.Context) (blob.FileInfo, error) {
	var fi blob.FileInfo
	err := c.store.inTx(ctx, func(tx *sql.Tx) error {
		var next int32
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(file_key) + 1, 0) FROM data_files WHERE collection = ?",
			c.collection).Scan(&next); err != nil {
			return fmt.Errorf("reading next file key: %w", err)
		}
		var err error
		fi, err = c.insert(ctx, tx, next)
		return err
	})
	return fi, err
}

func (c *fileCatalog) RemoveDataFile(ctx context.Context, key int32) error {
	res, err := c.store.db.ExecContext(ctx,
		"DELETE FROM data_files WHERE collection = ? AND file_key = ? AND data_length = -1",
		c.collection, key)
	if err != nil {
		return fmt.Errorf("removing data file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s unwritten key %d", blob.ErrFileNotFound, c.collection, key)
	}
	return nil
}

func (c *fileCatalog) FileInfo(ctx context.Context, key int32) (blob.FileInfo, error) {
	var name string
	var length int64
	err := c.store.db.QueryRowContext(ctx,
		"SELECT file_name, data_length FROM data_files WHERE collection = ? AND file_key = ?",
		c.collection, key).Scan(&name, &length)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return blob.FileInfo{}, fmt.Errorf("%w: %s key %d", blob.ErrFileNotFound, c.collection, key)
		}
		return blob.FileInfo{}, fmt.Errorf("reading data file: %w", err)
	}
	return c.info(key, name, length), nil
}

func (c *fileCatalog) UpdateDataFileLength(ctx context.Context, key int32, length int64) error {
	res, err := c.store.db.ExecContext(ctx,
		"UPDATE data_files SET data_length = ? WHERE collection = ? AND file_key = ?",
		length, c.collection, key)
	if err != nil {
		return fmt.Errorf("updating data file length: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s key %d", blob.ErrFileNotFound, c.collection, key)
	}
	return nil
}

func (c *fileCatalog) DataFiles(ctx context.Context) ([]blob.FileInfo, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT file_key, file_name, data_length FROM data_files
		WHERE collection = ? ORDER BY file_key
	`, c.collection)
	if err != nil {
		return nil, fmt.Errorf("listing data files: %w", err)
	}
	defer rows.Close()

	var out []blob.FileInfo
	for rows.Next() {
		var key int32
		var name string
		var length int64
		if err := rows.Scan(&key, &name, &length); err != nil {
			return nil, fmt.Errorf("scanning data file: %w", err)
		}
		out = append(out, c.info(key, name, length))
	}
	return out, rows.Err()
}
