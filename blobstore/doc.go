// Package blobstore provides the storage abstraction for docdb backups and
// archived data files.
//
// Store is the interface for reading and writing whole blobs. Sealed data
// files are streamed with Create; small documents such as backup manifests
// use Put. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, atomic writes via rename, mmap reads
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible storage
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// A WritableBlob that also implements Aborter lets Upload discard a partial
// write instead of publishing it.
package blobstore
