package collection

import (
	"context"
	"sync"

	"github.com/hupe1980/docdb/bitmap"
)

// DeleteVectorStore persists the IDs a collection hides: deleted documents
// and IDs that were reserved by a failed write.
type DeleteVectorStore interface {
	Load(ctx context.Context) (deleted, unwritten *bitmap.Bitmap, err error)
	Save(ctx context.Context, deleted, unwritten *bitmap.Bitmap) error
}

// MemoryDeleteVector is a DeleteVectorStore that keeps its state in memory.
type MemoryDeleteVector struct {
	mu        sync.Mutex
	deleted   *bitmap.Bitmap
	unwritten *bitmap.Bitmap
}

var _ DeleteVectorStore = (*MemoryDeleteVector)(nil)

// NewMemoryDeleteVector returns an empty delete vector.
func NewMemoryDeleteVector() *MemoryDeleteVector {
	return &MemoryDeleteVector{deleted: bitmap.New(), unwritten: bitmap.New()}
}

func (v *MemoryDeleteVector) Load(context.Context) (*bitmap.Bitmap, *bitmap.Bitmap, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleted.Clone(), v.unwritten.Clone(), nil
}

func (v *MemoryDeleteVector) Save(_ context.Context, deleted, unwritten *bitmap.Bitmap) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted, v.unwritten = deleted.Clone(), unwritten.Clone()
	return nil
}
