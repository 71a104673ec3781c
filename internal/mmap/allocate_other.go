//go:build unix && !linux

package mmap

// Allocate extends f to size bytes.
func Allocate(f Allocatable, size int64) error {
	if size < 0 {
		return ErrInvalidSize
	}
	return f.Truncate(size)
}
