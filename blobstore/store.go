package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction over the targets that archived data files and
// backups are written to.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The blob becomes visible
	// when the writer is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data where the backend supports it.
	Sync() error
}

// Aborter is implemented by writable blobs that can discard a partial write.
type Aborter interface {
	Abort() error
}

func abort(w WritableBlob) {
	if a, ok := w.(Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}

// ReaderPutter is implemented by stores that upload a stream of known size
// in a single request. Upload prefers it over Create.
type ReaderPutter interface {
	PutReader(ctx context.Context, name string, r io.Reader, size int64) error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// Upload copies size bytes from r into the blob name of s. If r ends early
// nothing is published and io.ErrUnexpectedEOF is returned.
func Upload(ctx context.Context, s Store, name string, r io.Reader, size int64) (int64, error) {
	if rp, ok := s.(ReaderPutter); ok {
		cr := &countingReader{r: io.LimitReader(r, size)}
		err := rp.PutReader(ctx, name, cr, size)
		if cr.n != size {
			_ = s.Delete(ctx, name)
			return cr.n, errors.Join(io.ErrUnexpectedEOF, err)
		}
		return cr.n, err
	}

	w, err := s.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, io.LimitReader(r, size))
	if err != nil {
		abort(w)
		return n, err
	}
	if n != size {
		abort(w)
		return n, io.ErrUnexpectedEOF
	}
	return n, w.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// clampRange bounds [off, off+length) to a blob of size bytes. Offsets at or
// past the end yield io.EOF.
func clampRange(size, off, length int64) (int64, int64, error) {
	if off < 0 || length < 0 {
		return 0, 0, errors.New("blobstore: negative range")
	}
	if off >= size {
		return 0, 0, io.EOF
	}
	return off, min(off+length, size), nil
}

// ReadAll returns the content of the blob name of s.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	if len(buf) == 0 {
		return buf, nil
	}
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && (!errors.Is(err, io.EOF) || n != len(buf)) {
		return nil, err
	}
	return buf[:n], nil
}
