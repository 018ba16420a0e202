package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// mockSource unblocks the mock collector when closed, like a socket would
type mockSource struct {
	closed chan struct{}
	once   sync.Once
	calls  atomic.Int32
}

func newMockSource() *mockSource {
	return &mockSource{closed: make(chan struct{})}
}

func (s *mockSource) Close() error {
	s.calls.Add(1)
	s.once.Do(func() { close(s.closed) })
	return nil
}

type mockCollector struct {
	source *mockSource
	// returns immediately with err if set
	finish bool
	err    error

	running atomic.Bool
}

func (c *mockCollector) Run(ctx context.Context) error {
	if c.finish {
		return c.err
	}
	c.running.Store(true)
	defer c.running.Store(false)
	// only the closed source ends a blocking read
	<-c.source.closed
	return c.err
}

type reportRecorder struct {
	mu      sync.Mutex
	interim int
	final   int
	// collector state observed when the final report was taken
	collectorRunning bool
	collector        *mockCollector
	err              error
}

func (r *reportRecorder) report(final bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if final {
		r.final++
		if r.collector != nil {
			r.collectorRunning = r.collector.running.Load()
		}
	} else {
		r.interim++
	}
	return r.err
}

func (r *reportRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interim, r.final
}

// --- Tests ---

func TestManager_DurationStopsRun(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src}
	rec := &reportRecorder{collector: c}

	m := NewManager(c, src, rec.report, logr.Discard())

	start := time.Now()
	err := m.Run(context.Background(), Options{Duration: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	interim, final := rec.counts()
	assert.Equal(t, 0, interim)
	assert.Equal(t, 1, final)
	assert.False(t, rec.collectorRunning, "final report must be taken after the collector stopped")
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestManager_ParentContextCancel(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src}
	rec := &reportRecorder{collector: c}

	m := NewManager(c, src, rec.report, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, m.Run(ctx, Options{}))
	_, final := rec.counts()
	assert.Equal(t, 1, final)
}

func TestManager_Stop(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src}
	rec := &reportRecorder{}

	m := NewManager(c, src, rec.report, logr.Discard())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(context.Background(), Options{})
	}()

	require.Eventually(t, c.running.Load, time.Second, 5*time.Millisecond)
	m.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	_, final := rec.counts()
	assert.Equal(t, 1, final)
}

func TestManager_Signal(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src}
	rec := &reportRecorder{}

	m := NewManager(c, src, rec.report, logr.Discard())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(context.Background(), Options{Signals: []os.Signal{syscall.SIGUSR1}})
	}()

	require.Eventually(t, c.running.Load, time.Second, 5*time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop on signal")
	}
	_, final := rec.counts()
	assert.Equal(t, 1, final)
}

func TestManager_CollectorFinishes(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src, finish: true}
	rec := &reportRecorder{}

	m := NewManager(c, src, rec.report, logr.Discard())

	require.NoError(t, m.Run(context.Background(), Options{}))
	_, final := rec.counts()
	assert.Equal(t, 1, final)
}

func TestManager_CollectorError(t *testing.T) {
	src := newMockSource()
	boom := errors.New("boom")
	c := &mockCollector{source: src, finish: true, err: boom}
	rec := &reportRecorder{}

	m := NewManager(c, src, rec.report, logr.Discard())

	err := m.Run(context.Background(), Options{})
	require.ErrorIs(t, err, boom)
	_, final := rec.counts()
	assert.Equal(t, 1, final, "a failing collector still gets its final report")
}

func TestManager_InterimReports(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src}
	rec := &reportRecorder{}

	m := NewManager(c, src, rec.report, logr.Discard())

	require.NoError(t, m.Run(context.Background(), Options{
		Duration:       120 * time.Millisecond,
		ReportInterval: 20 * time.Millisecond,
	}))

	interim, final := rec.counts()
	assert.GreaterOrEqual(t, interim, 2)
	assert.Equal(t, 1, final)
}

func TestManager_FinalReportError(t *testing.T) {
	src := newMockSource()
	c := &mockCollector{source: src, finish: true}
	sinkErr := errors.New("stdout closed")
	rec := &reportRecorder{err: sinkErr}

	m := NewManager(c, src, rec.report, logr.Discard())

	require.ErrorIs(t, m.Run(context.Background(), Options{}), sinkErr)
}
