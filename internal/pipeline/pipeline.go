package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cty-prefix-service/internal/domain"
	"github.com/couchcryptid/cty-prefix-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Source produces a freshly built snapshot of the prefix tables.
type Source interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// Exporter writes table entries to a downstream sink.
type Exporter interface {
	Export(ctx context.Context, entries []domain.Entry) error
}

// Options tune the loader. Zero values select defaults.
type Options struct {
	// ReloadInterval re-reads the source on this period. Zero loads once.
	ReloadInterval time.Duration
	// BatchSize caps entries per Export call. Defaults to 50.
	BatchSize int
	// Clock drives the reload ticker and retry timers. Defaults to the real clock.
	Clock clockwork.Clock
}

// Pipeline loads the prefix tables, publishes them for readers, and exports
// their entries.
type Pipeline struct {
	source         Source
	exporter       Exporter
	logger         *slog.Logger
	metrics        *observability.Metrics
	clock          clockwork.Clock
	reloadInterval time.Duration
	batchSize      int
	current        atomic.Pointer[domain.Snapshot]
}

// New creates a Pipeline. exporter may be nil to skip exporting.
func New(source Source, exporter Exporter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:         source,
		exporter:       exporter,
		logger:         logger,
		metrics:        metrics,
		clock:          opts.Clock,
		reloadInterval: opts.ReloadInterval,
		batchSize:      opts.BatchSize,
	}
}

// Snapshot returns the most recently published snapshot, or nil before the
// first successful load.
func (p *Pipeline) Snapshot() *domain.Snapshot {
	return p.current.Load()
}

// CheckReadiness returns nil once a snapshot has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.current.Load() == nil {
		return errors.New("prefix tables have not been loaded yet")
	}
	return nil
}

// Run loads the tables, then reloads them on every tick until the context is
// cancelled. Failed loads are retried with exponential backoff while the
// previous snapshot stays published.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("loader started", "reload_interval", p.reloadInterval, "batch_size", p.batchSize)
	p.metrics.LoaderRunning.Set(1)
	defer p.metrics.LoaderRunning.Set(0)

	if !p.loadWithRetry(ctx) {
		p.logger.Info("loader stopping", "reason", ctx.Err())
		return nil
	}

	if p.reloadInterval <= 0 {
		<-ctx.Done()
		p.logger.Info("loader stopping", "reason", ctx.Err())
		return nil
	}

	ticker := p.clock.NewTicker(p.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("loader stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if !p.loadWithRetry(ctx) {
				p.logger.Info("loader stopping", "reason", ctx.Err())
				return nil
			}
		}
	}
}

// Load runs one read-build-publish-export cycle. Export failures are logged
// and counted but do not fail the load.
func (p *Pipeline) Load(ctx context.Context) error {
	start := p.clock.Now()

	snap, err := p.source.Load(ctx)
	if err != nil {
		p.metrics.LoadErrors.Inc()
		return fmt.Errorf("load prefix tables: %w", err)
	}

	p.current.Store(snap)

	p.metrics.LoadsTotal.Inc()
	p.metrics.PatternKeys.Set(float64(len(snap.Patterns)))
	p.metrics.ExactKeys.Set(float64(len(snap.Exact)))
	p.metrics.Countries.Set(float64(len(snap.Countries)))
	p.metrics.LinesIgnored.Set(float64(snap.Stats.Ignored))

	p.logger.Info("prefix tables loaded",
		"source", snap.Source,
		"pattern_keys", len(snap.Patterns),
		"exact_keys", len(snap.Exact),
		"countries", len(snap.Countries),
		"lines", snap.Stats.Lines,
		"ignored", snap.Stats.Ignored,
	)

	p.export(ctx, snap)
	p.metrics.LoadDuration.Observe(p.clock.Since(start).Seconds())
	return nil
}

// loadWithRetry calls Load until it succeeds. Returns false if the context
// was cancelled first.
func (p *Pipeline) loadWithRetry(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		err := p.Load(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load failed", "error", err, "retry_in", backoff)
		if !sleepWithContext(ctx, p.clock, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// export sends the snapshot's entries in batches. The first failing batch
// abandons the rest; the next load exports the full set again.
func (p *Pipeline) export(ctx context.Context, snap *domain.Snapshot) {
	if p.exporter == nil {
		return
	}

	entries := snap.Entries()
	for start := 0; start < len(entries); start += p.batchSize {
		end := min(start+p.batchSize, len(entries))
		if err := p.exporter.Export(ctx, entries[start:end]); err != nil {
			p.metrics.ExportErrors.Inc()
			p.logger.Error("export batch failed", "error", err, "batch_size", end-start, "offset", start)
			return
		}
		p.metrics.EntriesExported.Add(float64(end - start))
	}
	p.logger.Debug("entries exported", "count", len(entries))
}

// sleepWithContext mirrors retry.SleepWithContext on an injected clock so
// tests can drive retry timers.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
