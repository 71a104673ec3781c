package docdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    insertCounter   prometheus.Counter
//	    filterHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
//	    p.insertCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordInsert is called after each single document insert.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordBatchInsert is called after each multi-document insert.
	// count is the number of documents attempted, failed is the number that
	// were not stored, duration is the total time taken.
	RecordBatchInsert(count, failed int, duration time.Duration)

	// RecordFilter is called after each filter evaluation.
	// constraints is the number of constraints, matched the number of IDs
	// returned.
	RecordFilter(constraints int, matched uint64, duration time.Duration, err error)

	// RecordRead is called after each document or field read that went to
	// the blob log.
	RecordRead(duration time.Duration, err error)

	// RecordEviction is called when the memory monitor unmapped data files.
	RecordEviction(files int)

	// RecordBackup is called after each backup run.
	RecordBackup(files int, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)              {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration)      {}
func (NoopMetricsCollector) RecordFilter(int, uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(time.Duration, error)                {}
func (NoopMetricsCollector) RecordEviction(int)                             {}
func (NoopMetricsCollector) RecordBackup(int, int64, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount       atomic.Int64
	InsertErrors      atomic.Int64
	InsertTotalNanos  atomic.Int64
	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64
	FilterCount       atomic.Int64
	FilterErrors      atomic.Int64
	FilterMatched     atomic.Int64
	FilterTotalNanos  atomic.Int64
	ReadCount         atomic.Int64
	ReadErrors        atomic.Int64
	EvictedFiles      atomic.Int64
	BackupCount       atomic.Int64
	BackupErrors      atomic.Int64
	BackupBytes       atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(count, failed int, _ time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
}

// RecordFilter implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFilter(_ int, matched uint64, duration time.Duration, err error) {
	b.FilterCount.Add(1)
	b.FilterTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FilterErrors.Add(1)
		return
	}
	b.FilterMatched.Add(int64(matched))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(_ time.Duration, err error) {
	b.ReadCount.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(files int) {
	b.EvictedFiles.Add(int64(files))
}

// RecordBackup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBackup(_ int, bytes int64, _ time.Duration, err error) {
	b.BackupCount.Add(1)
	if err != nil {
		b.BackupErrors.Add(1)
		return
	}
	b.BackupBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:       b.InsertCount.Load(),
		InsertErrors:      b.InsertErrors.Load(),
		InsertAvgNanos:    avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		BatchInsertCount:  b.BatchInsertCount.Load(),
		BatchInsertItems:  b.BatchInsertItems.Load(),
		BatchInsertFailed: b.BatchInsertFailed.Load(),
		FilterCount:       b.FilterCount.Load(),
		FilterErrors:      b.FilterErrors.Load(),
		FilterMatched:     b.FilterMatched.Load(),
		FilterAvgNanos:    avg(b.FilterTotalNanos.Load(), b.FilterCount.Load()),
		ReadCount:         b.ReadCount.Load(),
		ReadErrors:        b.ReadErrors.Load(),
		EvictedFiles:      b.EvictedFiles.Load(),
		BackupCount:       b.BackupCount.Load(),
		BackupErrors:      b.BackupErrors.Load(),
		BackupBytes:       b.BackupBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount       int64
	InsertErrors      int64
	InsertAvgNanos    int64
	BatchInsertCount  int64
	BatchInsertItems  int64
	BatchInsertFailed int64
	FilterCount       int64
	FilterErrors      int64
	FilterMatched     int64
	FilterAvgNanos    int64
	ReadCount         int64
	ReadErrors        int64
	EvictedFiles      int64
	BackupCount       int64
	BackupErrors      int64
	BackupBytes       int64
}
