package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
)

// FileInfo describes a data file.
type FileInfo struct {
	Key  int32
	Name string
	Path string
	// DataLength is the number of valid bytes, or -1 if the file has never
	// been flushed.
	DataLength int64
}

// Metadata locates a record inside the blob log.
type Metadata struct {
	FileKey int32
	Offset  int64
}

// FileCatalog tracks the data files of one collection.
type FileCatalog interface {
	// CurrentDataFile returns the file with the highest key, registering
	// the first file if none exists.
	CurrentDataFile(ctx context.Context) (FileInfo, error)
	// NextDataFile registers and returns a file with the next key.
	NextDataFile(ctx context.Context) (FileInfo, error)
	// RemoveDataFile unregisters a file that was never written.
	RemoveDataFile(ctx context.Context, key int32) error
	FileInfo(ctx context.Context, key int32) (FileInfo, error)
	UpdateDataFileLength(ctx context.Context, key int32, length int64) error
	// DataFiles returns all files in ascending key order.
	DataFiles(ctx context.Context) ([]FileInfo, error)
}

// DataFileName returns the name of a data file.
func DataFileName(db, collection string, key int32) string {
	return fmt.Sprintf("%s_%s.%d", db, collection, key)
}

// MemoryCatalog is a FileCatalog that keeps its state in memory.
type MemoryCatalog struct {
	mu         sync.Mutex
	dir        string
	db         string
	collection string
	files      []FileInfo
}

var _ FileCatalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog returns an empty catalog for data files in dir.
func NewMemoryCatalog(dir, db, collection string) *MemoryCatalog {
	return &MemoryCatalog{dir: dir, db: db, collection: collection}
}

func (c *MemoryCatalog) newFile(key int32) FileInfo {
	name := DataFileName(c.db, c.collection, key)
	fi := FileInfo{Key: key, Name: name, Path: filepath.Join(c.dir, name), DataLength: -1}
	c.files = append(c.files, fi)
	return fi
}

func (c *MemoryCatalog) CurrentDataFile(context.Context) (FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.files) == 0 {
		return c.newFile(0), nil
	}
	return c.files[len(c.files)-1], nil
}

func (c *MemoryCatalog) NextDataFile(context.Context) (FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var key int32
	if len(c.files) > 0 {
		key = c.files[len(c.files)-1].Key + 1
	}
	return c.newFile(key), nil
}

func (c *MemoryCatalog) RemoveDataFile(_ context.Context, key int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.find(key)
	if !ok || c.files[i].DataLength >= 0 {
		return fmt.Errorf("%w: unwritten key %d", ErrFileNotFound, key)
	}
	c.files = slices.Delete(c.files, i, i+1)
	return nil
}

func (c *MemoryCatalog) FileInfo(_ context.Context, key int32) (FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.find(key)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: key %d", ErrFileNotFound, key)
	}
	return c.files[i], nil
}

func (c *MemoryCatalog) UpdateDataFileLength(_ context.Context, key int32, length int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.find(key)
	if !ok {
		return fmt.Errorf("%w: key %d", ErrFileNotFound, key)
	}
	c.files[i].DataLength = length
	return nil
}

func (c *MemoryCatalog) DataFiles(context.Context) ([]FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.files), nil
}

func (c *MemoryCatalog) find(key int32) (int, bool) {
	return slices.BinarySearchFunc(c.files, key, func(fi FileInfo, k int32) int {
		return int(fi.Key) - int(k)
	})
}
