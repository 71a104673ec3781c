// Package resource implements the Controller that governs docdb's shared
// resources.
//
// The Controller manages three resource types:
//
//   - Memory: bytes currently memory-mapped by blob logs (tracked, optionally limited)
//   - Concurrency: slots for background jobs such as backup uploads
//   - IO: a token bucket throttling blob log writes
//
// # Memory
//
// Blob logs charge the size of every mapping they create and release it
// when the mapping is unmapped. MemoryUsage feeds the mapped byte counts of
// the database stats. With a limit configured, AcquireMemory fails fast:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded: evict and retry, or surface the error
//	}
//	defer rc.ReleaseMemory(size)
//
// # Background Jobs
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO
//
// AcquireIO blocks until the bucket allows n bytes. Requests larger than
// the bucket are served in bucket-sized steps.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
