package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/docdb/bitmap"
)

// DeleteVector persists the hidden document IDs of one collection.
type DeleteVector struct {
	store      *Store
	collection string
}

// DeleteVector returns the delete vector of a collection.
func (s *Store) DeleteVector(collection string) *DeleteVector {
	return &DeleteVector{store: s, collection: collection}
}

// Load returns the deleted IDs and the IDs that were reserved but never
// written. Both are empty if nothing was saved yet.
func (v *DeleteVector) Load(ctx context.Context) (deleted, unwritten *bitmap.Bitmap, err error) {
	var d, u []byte
	err = v.store.db.QueryRowContext(ctx,
		"SELECT deleted, unwritten FROM delete_vectors WHERE collection = ?", v.collection).
		Scan(&d, &u)
	if errors.Is(err, sql.ErrNoRows) {
		return bitmap.New(), bitmap.New(), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading delete vector: %w", err)
	}

	deleted, unwritten = bitmap.New(), bitmap.New()
	if err := deleted.UnmarshalBinary(d); err != nil {
		return nil, nil, fmt.Errorf("decoding deleted ids of %q: %w", v.collection, err)
	}
	if err := unwritten.UnmarshalBinary(u); err != nil {
		return nil, nil, fmt.Errorf("decoding unwritten ids of %q: %w", v.collection, err)
	}
	return deleted, unwritten, nil
}

// Save replaces the stored delete vector.
func (v *DeleteVector) Save(ctx context.Context, deleted, unwritten *bitmap.Bitmap) error {
	d, err := deleted.MarshalBinary()
	if err != nil {
		return err
	}
	u, err := unwritten.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := v.store.db.ExecContext(ctx, `
		INSERT INTO delete_vectors (collection, deleted, unwritten) VALUES (?, ?, ?)
		ON CONFLICT (collection) DO UPDATE SET deleted = excluded.deleted, unwritten = excluded.unwritten
	`, v.collection, d, u); err != nil {
		return fmt.Errorf("saving delete vector: %w", err)
	}
	return nil
}
