//go:build linux

package mmap

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Allocate reserves size bytes of disk space for f and extends it to size.
func Allocate(f Allocatable, size int64) error {
	if size < 0 {
		return ErrInvalidSize
	}
	err := unix.Fallocate(int(f.Fd()), 0, 0, size)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return f.Truncate(size)
	}
	return err
}
