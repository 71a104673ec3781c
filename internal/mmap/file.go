package mmap

import "sync/atomic"

// File is a reference-counted Mapping.
//
// NewFile returns a File holding one reference. Every successful TryRetain
// must be paired with a Release; the mapping is closed when the count
// drops to zero.
type File struct {
	*Mapping
	refs    atomic.Int64
	onClose func(*File)
}

// NewFile takes ownership of m. onClose, if set, runs once after the
// mapping has been closed.
func NewFile(m *Mapping, onClose func(*File)) *File {
	f := &File{Mapping: m, onClose: onClose}
	f.refs.Store(1)
	return f
}

// TryRetain adds a reference unless the file has already been released
// for good.
func (f *File) TryRetain() bool {
	for {
		n := f.refs.Load()
		if n <= 0 {
			return false
		}
		if f.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference and unmaps the file when it was the last one.
func (f *File) Release() error {
	n := f.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("mmap: file released too often")
	}
	err := f.Mapping.Close()
	if f.onClose != nil {
		f.onClose(f)
	}
	return err
}

// Refs returns the current reference count.
func (f *File) Refs() int64 {
	return f.refs.Load()
}
