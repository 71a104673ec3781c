// Package mmap provides memory-mapped data files for the blob log.
//
// # Overview
//
// Data files are pre-allocated to their maximum size and mapped once.
// The writer appends framed records directly into a read-write mapping and
// flushes the written range with msync; readers map sealed files read-only.
//
// # Usage
//
//	f, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//	_ = mmap.Allocate(f, size)
//	m, _ := mmap.Map(f, int(size), mmap.ReadWrite)
//	copy(m.Bytes()[off:], record)
//	_ = m.Flush(off, len(record), false)
//
// # Sharing
//
// File wraps a Mapping with a reference count. The reader cache holds one
// reference; every in-flight read retains another. The mapping is unmapped
// when the last reference is released, so evicting a file from the cache
// never invalidates bytes a reader is still copying.
//
// # Platform Support
//
// Unix only (mmap(2), msync(2), madvise(2), fallocate(2) on Linux).
package mmap
