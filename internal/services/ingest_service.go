package services

import (
	"context"
	"errors"
	"fmt"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"
)

// ErrNoIngestTarget is returned when neither a store nor a publisher is set.
var ErrNoIngestTarget = errors.New("no ingest target configured")

// RecordSink stores ingested records directly.
type RecordSink interface {
	sources.CustomerWriter
	sources.TransactionWriter
}

// RecordPublisher queues ingested records for a worker.
type RecordPublisher interface {
	PublishCustomer(ctx context.Context, c core.Customer) error
	PublishTransaction(ctx context.Context, t core.Transaction) error
}

// snapshotImporter is implemented by stores that can write a whole document
// in one transaction.
type snapshotImporter interface {
	ImportSnapshot(ctx context.Context, snap *core.Snapshot) error
}

// ImportResult counts the records accepted by ImportDocument.
type ImportResult struct {
	Customers    int
	Transactions int
}

// IngestService validates customers and transactions and hands them to the
// store, or to the broker when a publisher is configured.
type IngestService struct {
	sink      RecordSink
	publisher RecordPublisher
	logger    *applog.Logger
}

// NewIngestService creates an ingest service. Either sink or publisher may be
// nil; when both are set, records are published.
func NewIngestService(sink RecordSink, publisher RecordPublisher, logger *applog.Logger) *IngestService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &IngestService{
		sink:      sink,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentIngest),
	}
}

// IngestCustomer validates and stores (or queues) one customer.
func (s *IngestService) IngestCustomer(ctx context.Context, c core.Customer) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("customer %d: %w", c.ID, err)
	}
	switch {
	case s.publisher != nil:
		if err := s.publisher.PublishCustomer(ctx, c); err != nil {
			return fmt.Errorf("publish customer %d: %w", c.ID, err)
		}
	case s.sink != nil:
		if err := s.sink.UpsertCustomer(ctx, c); err != nil {
			return fmt.Errorf("store customer %d: %w", c.ID, err)
		}
	default:
		return ErrNoIngestTarget
	}
	return nil
}

// IngestTransaction validates and stores (or queues) one transaction.
func (s *IngestService) IngestTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	switch {
	case s.publisher != nil:
		if err := s.publisher.PublishTransaction(ctx, t); err != nil {
			return fmt.Errorf("publish transaction %d: %w", t.ID, err)
		}
	case s.sink != nil:
		if err := s.sink.UpsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("store transaction %d: %w", t.ID, err)
		}
	default:
		return ErrNoIngestTarget
	}
	return nil
}

// ImportDocument ingests a full collection pair. Every record is validated
// before anything is written; customers go first so transactions never
// arrive ahead of their customer.
func (s *IngestService) ImportDocument(ctx context.Context, customers []core.Customer, transactions []core.Transaction) (ImportResult, error) {
	var result ImportResult
	if s.publisher == nil && s.sink == nil {
		return result, ErrNoIngestTarget
	}

	for _, c := range customers {
		if err := c.Validate(); err != nil {
			return result, fmt.Errorf("customer %d: %w", c.ID, err)
		}
	}
	for _, t := range transactions {
		if err := t.Validate(); err != nil {
			return result, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
	}

	if importer, ok := s.sink.(snapshotImporter); ok && s.publisher == nil {
		if err := importer.ImportSnapshot(ctx, core.NewSnapshot(customers, transactions)); err != nil {
			return result, fmt.Errorf("import snapshot: %w", err)
		}
		result = ImportResult{Customers: len(customers), Transactions: len(transactions)}
		s.logImport(ctx, result)
		return result, nil
	}

	for _, c := range customers {
		if err := s.IngestCustomer(ctx, c); err != nil {
			return result, err
		}
		result.Customers++
	}
	for _, t := range transactions {
		if err := s.IngestTransaction(ctx, t); err != nil {
			return result, err
		}
		result.Transactions++
	}

	s.logImport(ctx, result)
	return result, nil
}

func (s *IngestService) logImport(ctx context.Context, result ImportResult) {
	s.logger.InfoContext(ctx, "Import completed",
		applog.FieldOperation, applog.OpIngest,
		applog.FieldCustomers, result.Customers,
		applog.FieldTransactions, result.Transactions,
		"queued", s.publisher != nil)
}
