package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/cty-prefix-service/internal/domain"
	"github.com/couchcryptid/cty-prefix-service/internal/observability"
	"github.com/couchcryptid/cty-prefix-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ctyFixture = `Sov Mil Order of Malta:   28:  28:  EU:   41.90:   12.43:    -1.0:  1A:
    1A;
Monaco:                   14:  27:  EU:   43.73:    7.42:    -1.0:  3A:
    3A,=3A/4Z5KJ/LH;
`

// --- mocks ---

// mockSource returns errs[i] on the i-th call while errors remain, then the
// fixture snapshot.
type mockSource struct {
	errs  []error
	calls atomic.Int64
}

func (m *mockSource) Load(_ context.Context) (*domain.Snapshot, error) {
	i := int(m.calls.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return fixtureSnapshot()
}

type mockExporter struct {
	mu      sync.Mutex
	batches [][]domain.Entry
	err     error
}

func (m *mockExporter) Export(_ context.Context, entries []domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, entries)
	return nil
}

func (m *mockExporter) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureSnapshot() (*domain.Snapshot, error) {
	f, err := os.CreateTemp("", "cty-*.dat")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(ctyFixture); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	return domain.Load(f.Name())
}

// --- tests ---

func TestPipeline_Load_PublishesSnapshot(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockSource{}, nil, discardLogger(), metrics, pipeline.Options{})

	require.Error(t, p.CheckReadiness(context.Background()))
	assert.Nil(t, p.Snapshot())

	require.NoError(t, p.Load(context.Background()))

	require.NoError(t, p.CheckReadiness(context.Background()))
	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, []string{"Monaco"}, snap.Exact.Countries("3A/4Z5KJ/LH"))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LoadsTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PatternKeys), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ExactKeys), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Countries), 0)
}

func TestPipeline_Load_FailureKeepsPreviousSnapshot(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	src := &mockSource{errs: []error{nil, domain.ErrSourceUnavailable}}
	p := pipeline.New(src, nil, discardLogger(), metrics, pipeline.Options{})

	require.NoError(t, p.Load(context.Background()))
	first := p.Snapshot()

	err := p.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Same(t, first, p.Snapshot())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LoadErrors), 0)
}

func TestPipeline_Load_ExportsInBatches(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	exp := &mockExporter{}
	p := pipeline.New(&mockSource{}, exp, discardLogger(), metrics, pipeline.Options{BatchSize: 2})

	require.NoError(t, p.Load(context.Background()))

	require.Len(t, exp.batches, 2)
	assert.Len(t, exp.batches[0], 2)
	assert.Len(t, exp.batches[1], 1)
	assert.Equal(t, "1A", exp.batches[0][0].Key)
	assert.Equal(t, domain.KindExact, exp.batches[1][0].Kind)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.EntriesExported), 0)
}

func TestPipeline_Load_ExportErrorDoesNotFailLoad(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	exp := &mockExporter{err: errors.New("broker down")}
	p := pipeline.New(&mockSource{}, exp, discardLogger(), metrics, pipeline.Options{BatchSize: 1})

	require.NoError(t, p.Load(context.Background()))
	assert.NotNil(t, p.Snapshot())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ExportErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.EntriesExported), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{errs: []error{domain.ErrSourceUnavailable}}
	p := pipeline.New(src, nil, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Nil(t, p.Snapshot())
}

func TestPipeline_Run_RetriesUntilSourceAvailable(t *testing.T) {
	src := &mockSource{errs: []error{domain.ErrSourceUnavailable, domain.ErrSourceUnavailable}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(src, nil, discardLogger(), metrics, pipeline.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.Snapshot() != nil }, 4*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(3), src.calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.LoadErrors), 0)

	cancel()
	require.NoError(t, <-done)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LoaderRunning), 0)
}

func TestPipeline_Run_ReloadsOnTick(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	src := &mockSource{}
	exp := &mockExporter{}
	p := pipeline.New(src, exp, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{
		ReloadInterval: time.Hour,
		Clock:          fakeClock,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// The ticker is the only waiter once the first load has finished.
	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), src.calls.Load())

	fakeClock.Advance(time.Hour)
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return exp.batchCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cty.dat")
	require.NoError(t, os.WriteFile(path, []byte(ctyFixture), 0o600))

	snap, err := pipeline.NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, snap.Source)
	assert.Equal(t, []string{"1A", "3A"}, snap.Patterns.Keys())
}

func TestFileSource_Missing(t *testing.T) {
	_, err := pipeline.NewFileSource(filepath.Join(t.TempDir(), "nope.dat")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.NewFileSource("cty.dat").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
