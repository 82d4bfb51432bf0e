package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"
)

// LoadStatus describes the progress of the one-time snapshot fetch.
type LoadStatus string

const (
	StatusPending     LoadStatus = "pending"
	StatusLoaded      LoadStatus = "loaded"
	StatusUnavailable LoadStatus = "unavailable"
)

// SnapshotLoader performs a single fetch from a data source and publishes the
// result to every session. There is no retry and no re-fetch.
type SnapshotLoader struct {
	fetcher sources.SnapshotFetcher
	timeout time.Duration
	logger  *applog.Logger

	once sync.Once
	done chan struct{}

	mu       sync.RWMutex
	snapshot *core.Snapshot
	status   LoadStatus
	err      error
}

// NewSnapshotLoader creates a loader. A zero timeout leaves the fetch bounded
// only by the caller's context.
func NewSnapshotLoader(fetcher sources.SnapshotFetcher, timeout time.Duration, logger *applog.Logger) *SnapshotLoader {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SnapshotLoader{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger.WithComponent(applog.ComponentSource),
		done:    make(chan struct{}),
		status:  StatusPending,
	}
}

// Start runs the fetch in the background.
func (l *SnapshotLoader) Start(ctx context.Context) {
	go l.Load(ctx)
}

// Load performs the fetch on first call and blocks until it resolves. Every
// call returns the published snapshot, which is never nil.
func (l *SnapshotLoader) Load(ctx context.Context) *core.Snapshot {
	l.once.Do(func() { l.fetch(ctx) })
	<-l.done
	return l.Snapshot()
}

func (l *SnapshotLoader) fetch(ctx context.Context) {
	defer close(l.done)

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := l.safeFetch(ctx)
	elapsed := time.Since(start).Milliseconds()

	status := StatusLoaded
	switch {
	case err != nil:
		l.logger.ErrorContext(ctx, "Snapshot fetch failed, continuing with empty data",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, err,
			"error_type", applog.ErrorTypeUnavailable,
			applog.FieldDuration, elapsed)
		snap, status = core.EmptySnapshot(), StatusUnavailable
	case snap == nil:
		l.logger.WarnContext(ctx, "Data source returned no data",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldDuration, elapsed)
		snap, status = core.EmptySnapshot(), StatusUnavailable
	default:
		l.logger.InfoContext(ctx, "Snapshot loaded",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldCustomers, len(snap.Customers),
			applog.FieldTransactions, len(snap.Transactions),
			applog.FieldDuration, elapsed)
		if snap.IsEmpty() {
			l.logger.WarnContext(ctx, "Data source returned an empty snapshot",
				applog.FieldOperation, applog.OpFetch)
		}
		if orphans := snap.Orphans(); len(orphans) > 0 {
			l.logger.WarnContext(ctx, "Transactions reference unknown customers",
				"count", len(orphans))
		}
	}

	l.mu.Lock()
	l.snapshot, l.status, l.err = snap, status, err
	l.mu.Unlock()
}

func (l *SnapshotLoader) safeFetch(ctx context.Context) (snap *core.Snapshot, err error) {
	if l.fetcher == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("data source panic: %v", r)
		}
	}()
	return l.fetcher.FetchSnapshot(ctx)
}

// Snapshot returns the published snapshot, or nil while the fetch is pending.
func (l *SnapshotLoader) Snapshot() *core.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Done is closed once the fetch has resolved.
func (l *SnapshotLoader) Done() <-chan struct{} {
	return l.done
}

// Status reports the fetch progress.
func (l *SnapshotLoader) Status() LoadStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Err returns the fetch error, if any.
func (l *SnapshotLoader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}
