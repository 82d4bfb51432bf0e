package worker

import (
	"context"
	"errors"
	"testing"

	"custdash/internal/amqp"
	"custdash/internal/core"
	"custdash/internal/sources/memory"
)

type failingStore struct{ err error }

func (f failingStore) UpsertCustomer(context.Context, core.Customer) error       { return f.err }
func (f failingStore) UpsertTransaction(context.Context, core.Transaction) error { return f.err }

func TestIngestWorkerHandleMessage(t *testing.T) {
	store := memory.New(nil, nil)
	w := NewIngestWorker(store, nil)
	ctx := context.Background()

	msgs := []*amqp.IngestMessage{
		amqp.NewCustomerMessage(core.Customer{ID: 1, Name: "Ada"}),
		amqp.NewTransactionMessage(core.Transaction{ID: 10, CustomerID: 1, Date: "2024-03-01", Amount: 12.5}),
		amqp.NewTransactionMessage(core.Transaction{ID: 10, CustomerID: 1, Date: "2024-03-01", Amount: 20}),
	}
	for _, msg := range msgs {
		if err := w.HandleMessage(ctx, msg); err != nil {
			t.Fatalf("HandleMessage(%s) error = %v", msg.Kind, err)
		}
	}

	snap, err := store.FetchSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Customers) != 1 || len(snap.Transactions) != 1 {
		t.Fatalf("snapshot has %d customers and %d transactions, want 1 and 1", len(snap.Customers), len(snap.Transactions))
	}
	if snap.Transactions[0].Amount != 20 {
		t.Errorf("redelivered transaction should replace the old one, amount = %v", snap.Transactions[0].Amount)
	}
	if processed, rejected := w.Stats(); processed != 3 || rejected != 0 {
		t.Errorf("Stats() = %d, %d, want 3, 0", processed, rejected)
	}
}

func TestIngestWorkerRejectsInvalid(t *testing.T) {
	w := NewIngestWorker(memory.New(nil, nil), nil)

	tests := []struct {
		name string
		msg  *amqp.IngestMessage
	}{
		{"unknown kind", &amqp.IngestMessage{Kind: "refund"}},
		{"missing payload", &amqp.IngestMessage{Kind: amqp.KindTransaction}},
		{"invalid customer", amqp.NewCustomerMessage(core.Customer{ID: 0, Name: "x"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleMessage(context.Background(), tt.msg)
			if !amqp.IsPermanent(err) {
				t.Errorf("HandleMessage() error = %v, want permanent", err)
			}
		})
	}
	if _, rejected := w.Stats(); rejected != int64(len(tests)) {
		t.Errorf("rejected = %d, want %d", rejected, len(tests))
	}
}

func TestIngestWorkerStoreErrorIsRetryable(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewIngestWorker(failingStore{err: boom}, nil)

	err := w.HandleMessage(context.Background(), amqp.NewCustomerMessage(core.Customer{ID: 1, Name: "Ada"}))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if amqp.IsPermanent(err) {
		t.Error("store errors should be retried, not rejected")
	}
}
