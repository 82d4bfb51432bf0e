package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"custdash/internal/amqp"
	applog "custdash/internal/log"
	"custdash/internal/sources"
)

// Store is where consumed records are written.
type Store interface {
	sources.CustomerWriter
	sources.TransactionWriter
}

// IngestWorker applies ingest messages from the broker to the store.
type IngestWorker struct {
	store  Store
	logger *applog.Logger

	processed atomic.Int64
	rejected  atomic.Int64
}

func NewIngestWorker(store Store, logger *applog.Logger) *IngestWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &IngestWorker{
		store:  store,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage upserts the record carried by msg. Invalid messages are
// returned as permanent errors so the broker drops them; store failures are
// retried through redelivery.
func (w *IngestWorker) HandleMessage(ctx context.Context, msg *amqp.IngestMessage) error {
	if err := msg.Validate(); err != nil {
		w.rejected.Add(1)
		return amqp.Permanent(fmt.Errorf("invalid %s message: %w", msg.Kind, err))
	}

	switch msg.Kind {
	case amqp.KindCustomer:
		if err := w.store.UpsertCustomer(ctx, *msg.Customer); err != nil {
			return fmt.Errorf("upsert customer %d: %w", msg.Customer.ID, err)
		}
		w.logger.DebugContext(ctx, "Customer stored", applog.FieldCustomerID, msg.Customer.ID)
	case amqp.KindTransaction:
		if err := w.store.UpsertTransaction(ctx, *msg.Transaction); err != nil {
			return fmt.Errorf("upsert transaction %d: %w", msg.Transaction.ID, err)
		}
		w.logger.DebugContext(ctx, "Transaction stored",
			"transaction_id", msg.Transaction.ID,
			applog.FieldCustomerID, msg.Transaction.CustomerID)
	}

	w.processed.Add(1)
	return nil
}

// Stats returns the number of stored and rejected messages.
func (w *IngestWorker) Stats() (processed, rejected int64) {
	return w.processed.Load(), w.rejected.Load()
}
