// Package lifecycle decides when a collection run ends and makes sure the final report is
// produced exactly once, after the collector has stopped.
package lifecycle

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
)

type collector interface {
	Run(ctx context.Context) error
}

// ReportFunc is the report sink. final is false for interim reports on the report interval.
type ReportFunc func(final bool) error

type Options struct {
	// Duration bounds the run, 0 runs until interrupted
	Duration time.Duration
	// ReportInterval produces interim reports, 0 disables them
	ReportInterval time.Duration
	// Signals stop the run, defaults to SIGINT and SIGTERM
	Signals []os.Signal
}

type Manager struct {
	collector collector
	source    io.Closer
	report    ReportFunc
	logger    logr.Logger

	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewManager wires a collector with the source it reads from and a report sink. The source is
// closed on shutdown to unblock a pending read.
func NewManager(c collector, source io.Closer, report ReportFunc, log logr.Logger) *Manager {
	return &Manager{collector: c, source: source, report: report, logger: log}
}

// Run starts the collector and blocks until ctx is done, a signal arrives, the duration elapses,
// or the collector returns on its own. The collector has returned before the final report is
// produced.
func (m *Manager) Run(ctx context.Context, opts Options) error {
	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	m.setupSignalHandling(ctx, cancel, signals)

	if opts.Duration > 0 {
		m.setupTimerDuration(ctx, cancel, opts.Duration)
	}

	var tick <-chan time.Time
	if opts.ReportInterval > 0 {
		ticker := time.NewTicker(opts.ReportInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.collector.Run(ctx)
	}()

	m.logger.Info("Started collection", "duration", opts.Duration.String(), "reportInterval", opts.ReportInterval.String())

	var runErr error
	collectorDone := false
loop:
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping collection", "reason", context.Cause(ctx).Error())
			break loop
		case runErr = <-errCh:
			collectorDone = true
			if runErr != nil {
				m.logger.Error(runErr, "Collector failed")
			} else {
				m.logger.Info("Collector finished")
			}
			break loop
		case <-tick:
			if err := m.report(false); err != nil {
				m.logger.Error(err, "Failed to produce interim report")
			}
		}
	}

	cancel()
	if err := m.source.Close(); err != nil {
		m.logger.Error(err, "Failed to close packet source")
	}
	if !collectorDone {
		runErr = <-errCh
	}

	if err := m.report(true); err != nil {
		m.logger.Error(err, "Failed to produce final report")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// Stop ends a running collection as if a signal had arrived
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Manager) setupSignalHandling(ctx context.Context, cancel context.CancelFunc, signals []os.Signal) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			m.logger.Info("Received signal, initiating shutdown", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
}

func (m *Manager) setupTimerDuration(ctx context.Context, cancel context.CancelFunc, duration time.Duration) {
	m.logger.Info("Collection will run for a bounded duration", "duration", duration.String())

	go func() {
		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case <-timer.C:
			m.logger.Info("Duration reached, initiating shutdown")
			cancel()
		case <-ctx.Done():
		}
	}()
}
