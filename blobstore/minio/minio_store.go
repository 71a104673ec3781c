package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/docdb/blobstore"
	"github.com/minio/minio-go/v7"
)

// Store keeps archived data files and backups in a MinIO or S3-compatible
// bucket. Blob names are object keys below an optional root prefix.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var (
	_ blobstore.Store        = (*Store)(nil)
	_ blobstore.ReaderPutter = (*Store)(nil)
)

// NewStore returns a store writing to bucket. rootPrefix is prepended to
// every blob name, e.g. "docdb/" gives keys like "docdb/<db>/<backup id>/...".
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Data files and catalog snapshots are opaque binaries; every upload carries
// a CRC32C checksum that the server verifies.
func putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		AutoChecksum: minio.ChecksumCRC32C,
	}
}

// Open stats the object and returns a handle reading it by range.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &object{client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	return s.PutReader(ctx, name, bytes.NewReader(data), int64(len(data)))
}

// PutReader uploads size bytes from r. The object is only created when the
// upload completes, so a failing r leaves no partial object behind.
func (s *Store) PutReader(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, size, putOptions())
	return err
}

// Create starts a streaming upload of unknown size. Close waits for the
// upload to finish; Abort cancels it.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &upload{pw: pw, done: make(chan error, 1)}

	key := s.key(name)
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, putOptions())
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes the object. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// List returns the sorted names below prefix, relative to the root prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	// path.Join drops trailing slashes, which would let "db/a/" match "db/ab".
	full := s.key(prefix)
	if full != "" && (prefix == "" || strings.HasSuffix(prefix, "/")) {
		full += "/"
	}
	opts := minio.ListObjectsOptions{Prefix: full, Recursive: true}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// object reads an immutable object by HTTP range.
type object struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error { return nil }

// get returns a reader over [off, off+length) clamped to the object and the
// number of bytes it yields.
func (o *object) get(ctx context.Context, off, length int64) (io.ReadCloser, int64, error) {
	if off < 0 || length < 0 {
		return nil, 0, errors.New("minio: negative range")
	}
	if off >= o.size {
		return nil, 0, io.EOF
	}
	end := min(off+length, o.size)
	if end == off {
		return io.NopCloser(bytes.NewReader(nil)), 0, nil
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end-1); err != nil {
		return nil, 0, err
	}
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	if err != nil {
		return nil, 0, err
	}
	return obj, end - off, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	r, n, err := o.get(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	read, err := io.ReadFull(r, p[:n])
	if err == nil && read < len(p) {
		err = io.EOF
	}
	return read, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	r, _, err := o.get(ctx, off, length)
	return r, err
}

var errUploadAborted = errors.New("minio: upload aborted")

// upload feeds a background PutObject through a pipe.
type upload struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	if !u.finished.CompareAndSwap(false, true) {
		return errors.New("minio: upload already finished")
	}
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// Abort fails the pipe so PutObject returns before completing the object,
// then waits for it.
func (u *upload) Abort() error {
	if !u.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = u.pw.CloseWithError(errUploadAborted)
	<-u.done
	return nil
}
