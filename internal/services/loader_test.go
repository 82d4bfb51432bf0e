package services

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"
)

func TestSnapshotLoaderSuccess(t *testing.T) {
	var calls atomic.Int32
	fetcher := sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
		calls.Add(1)
		return scenarioSnapshot(), nil
	})
	l := NewSnapshotLoader(fetcher, time.Second, nil)

	if l.Status() != StatusPending || l.Snapshot() != nil {
		t.Fatal("loader should start pending with no snapshot")
	}

	snap := l.Load(context.Background())
	if len(snap.Customers) != 2 || len(snap.Transactions) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	l.Load(context.Background())

	if calls.Load() != 1 {
		t.Fatalf("fetch must run once, ran %d times", calls.Load())
	}
	if l.Status() != StatusLoaded || l.Err() != nil {
		t.Fatalf("unexpected status %s err=%v", l.Status(), l.Err())
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestSnapshotLoaderDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		fetcher sources.SnapshotFetcher
		wantErr bool
	}{
		{
			name: "error",
			fetcher: sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
				return nil, errors.New("connection refused")
			}),
			wantErr: true,
		},
		{
			name: "nil result",
			fetcher: sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
				return nil, nil
			}),
		},
		{
			name: "panic",
			fetcher: sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
				panic("boom")
			}),
			wantErr: true,
		},
		{
			name:    "no fetcher",
			fetcher: nil,
		},
		{
			name: "timeout",
			fetcher: sources.FetcherFunc(func(ctx context.Context) (*core.Snapshot, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewSnapshotLoader(tt.fetcher, 20*time.Millisecond, nil)
			snap := l.Load(context.Background())
			if snap == nil || !snap.IsEmpty() {
				t.Fatalf("expected empty snapshot, got %+v", snap)
			}
			if l.Status() != StatusUnavailable {
				t.Fatalf("expected unavailable, got %s", l.Status())
			}
			if (l.Err() != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", l.Err(), tt.wantErr)
			}
		})
	}
}

func TestSnapshotLoaderStartAsync(t *testing.T) {
	release := make(chan struct{})
	l := NewSnapshotLoader(sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
		<-release
		return scenarioSnapshot(), nil
	}), 0, nil)

	l.Start(context.Background())
	if l.Snapshot() != nil {
		t.Fatal("snapshot must be nil while pending")
	}
	close(release)

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loader did not resolve")
	}
	if l.Snapshot() == nil || l.Status() != StatusLoaded {
		t.Fatalf("expected loaded snapshot, status %s", l.Status())
	}
}

func TestSnapshotLoaderWarnsOnEmptySource(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := applog.New(applog.Config{Output: buf})
	fetcher := sources.FetcherFunc(func(context.Context) (*core.Snapshot, error) {
		return core.EmptySnapshot(), nil
	})
	l := NewSnapshotLoader(fetcher, time.Second, logger)
	l.Load(context.Background())

	if l.Status() != StatusLoaded {
		t.Fatalf("an empty source is still loaded, got %s", l.Status())
	}
	if !bytes.Contains(buf.Bytes(), []byte("Data source returned an empty snapshot")) {
		t.Errorf("expected empty snapshot warning, got %q", buf.String())
	}
}
