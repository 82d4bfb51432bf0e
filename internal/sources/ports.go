package sources

import (
	"context"

	"custdash/internal/core"
)

// Ports for inbound data adapters.
type (
	// SnapshotFetcher supplies the customer and transaction collections in a
	// single call. A nil snapshot with a nil error means "no data".
	SnapshotFetcher interface {
		FetchSnapshot(ctx context.Context) (*core.Snapshot, error)
	}

	// CustomerWriter persists customers for later snapshots.
	CustomerWriter interface {
		UpsertCustomer(ctx context.Context, c core.Customer) error
	}

	// TransactionWriter persists transactions for later snapshots.
	TransactionWriter interface {
		UpsertTransaction(ctx context.Context, t core.Transaction) error
	}
)

// FetcherFunc adapts a plain function to SnapshotFetcher.
type FetcherFunc func(ctx context.Context) (*core.Snapshot, error)

// FetchSnapshot calls f.
func (f FetcherFunc) FetchSnapshot(ctx context.Context) (*core.Snapshot, error) {
	return f(ctx)
}
