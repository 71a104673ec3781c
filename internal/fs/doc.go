// Package fs provides the filesystem seam used by the blob log.
//
// The package defines two key interfaces:
//
//   - [File]: an open file that can be written, synced, grown and mapped
//   - [FileSystem]: filesystem operations (open, remove, stat, etc.)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects open, write, truncate, sync and
//     close failures per file name pattern
//
// Production code uses fs.Default:
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Tests inject a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("_users.1", fs.Fault{FailOnOpen: true})
//
// Filesystem calls take no context.Context; they are not interruptible at
// the syscall level.
package fs
