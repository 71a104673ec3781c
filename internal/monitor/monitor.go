// Package monitor runs the background task that keeps the mapped memory of
// a database below a threshold.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// DefaultInterval is the time between two memory samples.
const DefaultInterval = 10 * time.Second

// Clock abstracts time for the monitor loop.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sampler reports the memory used by the process in bytes.
type Sampler interface {
	MemoryUsage() (uint64, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func() (uint64, error)

func (f SamplerFunc) MemoryUsage() (uint64, error) { return f() }

// ProcessSampler samples the resident set size of the current process
// from procfs. Mapped data file pages count towards it once touched.
type ProcessSampler struct{}

func (ProcessSampler) MemoryUsage() (uint64, error) {
	p, err := procfs.Self()
	if err != nil {
		return 0, err
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(stat.ResidentMemory()), nil
}

// Target releases mapped memory on request.
type Target interface {
	Name() string
	UnmapLRUDataFiles() int
}

// Config configures a Monitor.
type Config struct {
	Interval time.Duration
	// Threshold is the memory usage above which targets are asked to unmap.
	Threshold uint64
	Sampler   Sampler
	Clock     Clock
	// Targets returns the current targets on every tick.
	Targets func() []Target
	Logger  *slog.Logger
}

// Monitor periodically samples memory usage and, while it exceeds the
// threshold, asks targets round robin to unmap their least recently used
// data files. Every target is visited at most once per tick.
type Monitor struct {
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// next is the round-robin position, owned by the loop goroutine.
	next int
}

// Start launches the monitor loop.
func Start(cfg Config) *Monitor {
	m := newMonitor(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
	return m
}

func newMonitor(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Sampler == nil {
		cfg.Sampler = ProcessSampler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Targets == nil {
		cfg.Targets = func() []Target { return nil }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Monitor{
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Stop cancels the loop and waits for it to exit. It is idempotent.
func (m *Monitor) Stop() {
	m.once.Do(m.cancel)
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-m.cfg.Clock.After(m.cfg.Interval):
		}
		if ctx.Err() != nil {
			return
		}
		m.safeTick(ctx)
	}
}

func (m *Monitor) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.cfg.Logger.Error("memory monitor panic", slog.Any("panic", r))
		}
	}()
	if err := m.tick(ctx); err != nil {
		m.cfg.Logger.Warn("memory monitor tick failed", slog.Any("error", err))
	}
}

// tick runs one cleanup round.
func (m *Monitor) tick(ctx context.Context) error {
	usage, err := m.cfg.Sampler.MemoryUsage()
	if err != nil {
		return fmt.Errorf("sampling memory: %w", err)
	}
	if usage <= m.cfg.Threshold {
		return nil
	}

	targets := m.cfg.Targets()
	if len(targets) == 0 {
		return nil
	}
	start := m.next % len(targets)

	unmapped := 0
	for i := 0; i < len(targets) && usage > m.cfg.Threshold; i++ {
		if ctx.Err() != nil {
			return nil
		}
		t := targets[(start+i)%len(targets)]
		m.next = (start + i + 1) % len(targets)

		n := t.UnmapLRUDataFiles()
		unmapped += n
		m.cfg.Logger.Debug("data files unmapped",
			slog.String("collection", t.Name()),
			slog.Int("count", n),
		)

		if usage, err = m.cfg.Sampler.MemoryUsage(); err != nil {
			return fmt.Errorf("sampling memory: %w", err)
		}
	}

	m.cfg.Logger.Info("memory cleanup completed",
		slog.Int("unmapped", unmapped),
		slog.Uint64("usage", usage),
		slog.Uint64("threshold", m.cfg.Threshold),
	)
	return nil
}
