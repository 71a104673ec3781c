package docdb

import (
	"log/slog"
	"time"

	"github.com/hupe1980/docdb/document"
	"github.com/hupe1980/docdb/document/jsondoc"
	"github.com/hupe1980/docdb/internal/blob"
	"github.com/hupe1980/docdb/internal/monitor"
)

// DefaultMemoryCleanupThreshold is the process memory usage above which
// the memory monitor starts unmapping data files.
const DefaultMemoryCleanupThreshold = 4 << 30

// Codec selects the compression algorithm of compressed records.
type Codec = blob.Codec

const (
	// CodecLZ4 compresses records with LZ4 block compression.
	CodecLZ4 = blob.CodecLZ4
	// CodecZstd compresses records with zstd.
	CodecZstd = blob.CodecZstd
)

// MemorySampler reports the memory used by the process in bytes.
type MemorySampler interface {
	MemoryUsage() (uint64, error)
}

type options struct {
	createIfMissing        bool
	maxDataFileSize        int64
	compress               bool
	codec                  Codec
	synchronous            bool
	readerCacheSize        int
	memoryCleanupThreshold uint64
	monitorInterval        time.Duration
	memorySampler          MemorySampler
	schemaFactory          document.SchemaFactory
	ioLimit                int64
	memoryLimit            int64
	backupConcurrency      int
	metricsCollector       MetricsCollector
	logger                 *Logger
}

// Option configures Open.
//
// Options are applied once when the database is opened and apply to every
// collection of it.
type Option func(*options)

// WithCreateIfMissing controls whether Open creates a database that does
// not exist yet. Default: true.
//
// With false, opening a missing database fails with ErrNotFound:
//
//	db, err := docdb.Open(ctx, "./data", "shop", docdb.WithCreateIfMissing(false))
//	if errors.Is(err, docdb.ErrNotFound) {
//	    // ...
//	}
func WithCreateIfMissing(create bool) Option {
	return func(o *options) {
		o.createIfMissing = create
	}
}

// WithMaxDataFileSize sets the size data files are pre-allocated to. A
// record never spans two files, so no document may be larger than this.
// Default: 512 MiB.
func WithMaxDataFileSize(size int64) Option {
	return func(o *options) {
		o.maxDataFileSize = size
	}
}

// WithCompression enables compression of stored documents by default.
// Single writes can override it with collection.WithCompression.
// Default: false.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithCodec selects the compression algorithm of compressed records.
// Records remember their codec, so changing it keeps older data readable.
// Default: CodecLZ4.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithSynchronous controls whether every write waits for the data to reach
// the disk before it returns. Default: true.
//
// Asynchronous writes are faster but the most recent documents may be lost
// on a crash:
//
//	db, _ := docdb.Open(ctx, "./data", "events", docdb.WithSynchronous(false))
func WithSynchronous(sync bool) Option {
	return func(o *options) {
		o.synchronous = sync
	}
}

// WithReaderCacheSize sets how many sealed data files stay mapped after the
// memory monitor asked a collection to unmap. Default: 2.
func WithReaderCacheSize(n int) Option {
	return func(o *options) {
		o.readerCacheSize = n
	}
}

// WithMemoryCleanupThreshold sets the process memory usage in bytes above
// which the memory monitor unmaps least recently used data files.
// Default: 4 GiB.
func WithMemoryCleanupThreshold(bytes uint64) Option {
	return func(o *options) {
		o.memoryCleanupThreshold = bytes
	}
}

// WithMonitorInterval sets the time between two memory samples.
// Default: 10s.
func WithMonitorInterval(d time.Duration) Option {
	return func(o *options) {
		o.monitorInterval = d
	}
}

// WithMemorySampler replaces the resident set size sampler of the memory
// monitor.
//
// Example that reports Go heap usage instead:
//
//	type heapSampler struct{}
//
//	func (heapSampler) MemoryUsage() (uint64, error) {
//	    var ms runtime.MemStats
//	    runtime.ReadMemStats(&ms)
//	    return ms.HeapInuse, nil
//	}
//
//	db, _ := docdb.Open(ctx, "./data", "shop", docdb.WithMemorySampler(heapSampler{}))
func WithMemorySampler(s MemorySampler) Option {
	return func(o *options) {
		o.memorySampler = s
	}
}

// WithSchemaFactory sets the factory that decodes stored schemas when
// collections are created or reopened. Default: jsondoc.Factory.
func WithSchemaFactory(f document.SchemaFactory) Option {
	return func(o *options) {
		o.schemaFactory = f
	}
}

// WithIOLimit caps the blob log write throughput in bytes per second.
// Default: unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMemoryLimit sets a hard limit on the bytes of data files mapped at
// once. When a mapping would exceed it, least recently used sealed files are
// unmapped first. Default: unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithBackupConcurrency sets how many collections Backup archives in
// parallel. Default: 1.
func WithBackupConcurrency(n int) Option {
	return func(o *options) {
		o.backupConcurrency = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &docdb.BasicMetricsCollector{}
//	db, _ := docdb.Open(ctx, "./data", "shop", docdb.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := docdb.NewJSONLogger(slog.LevelInfo)
//	db, _ := docdb.Open(ctx, "./data", "shop", docdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		createIfMissing:        true,
		maxDataFileSize:        blob.DefaultMaxDataFileSize,
		codec:                  CodecLZ4,
		synchronous:            true,
		readerCacheSize:        blob.DefaultReaderCacheSize,
		memoryCleanupThreshold: DefaultMemoryCleanupThreshold,
		monitorInterval:        monitor.DefaultInterval,
		memorySampler:          monitor.ProcessSampler{},
		schemaFactory:          jsondoc.Factory{},
		backupConcurrency:      1,
		metricsCollector:       NoopMetricsCollector{},
		logger:                 NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.schemaFactory == nil {
		o.schemaFactory = jsondoc.Factory{}
	}
	if o.memorySampler == nil {
		o.memorySampler = monitor.ProcessSampler{}
	}
	return o
}
