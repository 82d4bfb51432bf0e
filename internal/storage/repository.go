package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"custdash/internal/core"
	applog "custdash/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores customers and transactions and serves them back as
// a dashboard snapshot.
type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
	logger        *applog.Logger
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, err := SchemaVersion(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("database schema is dirty at version %d", version)
	}

	logger = logger.WithComponent(applog.ComponentStorage)
	logger.Info("SQLite schema ready", "schema_version", version, "db_path", dbPath)

	return &SQLiteRepository{
		db:            db,
		queries:       New(db),
		schemaVersion: version,
		logger:        logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchSnapshot implements sources.SnapshotFetcher
func (r *SQLiteRepository) FetchSnapshot(ctx context.Context) (*core.Snapshot, error) {
	customerRows, err := r.queries.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	txRows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	customers := make([]core.Customer, 0, len(customerRows))
	for _, c := range customerRows {
		customers = append(customers, core.Customer{ID: c.ID, Name: c.Name})
	}
	txs := make([]core.Transaction, 0, len(txRows))
	for _, t := range txRows {
		txs = append(txs, core.Transaction{ID: t.ID, CustomerID: t.CustomerID, Date: t.Date, Amount: t.Amount})
	}

	r.logger.DebugContext(ctx, "Snapshot read from SQLite",
		applog.FieldCustomers, len(customers),
		applog.FieldTransactions, len(txs))

	return core.NewSnapshot(customers, txs), nil
}

// UpsertCustomer implements sources.CustomerWriter
func (r *SQLiteRepository) UpsertCustomer(ctx context.Context, c core.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertCustomer(ctx, UpsertCustomerParams{ID: c.ID, Name: c.Name}); err != nil {
		return fmt.Errorf("upsert customer %d: %w", c.ID, err)
	}
	r.logger.DebugContext(ctx, "Customer saved to SQLite", applog.FieldCustomerID, c.ID)
	return nil
}

// UpsertTransaction implements sources.TransactionWriter
func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertTransaction(ctx, UpsertTransactionParams{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		Date:       t.Date,
		Amount:     t.Amount,
	})
	if err != nil {
		return fmt.Errorf("upsert transaction %d: %w", t.ID, err)
	}
	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID, applog.FieldCustomerID, t.CustomerID)
	return nil
}

// ImportSnapshot writes every customer and transaction in one database
// transaction. Nothing is written when any record is invalid.
func (r *SQLiteRepository) ImportSnapshot(ctx context.Context, snap *core.Snapshot) error {
	if snap == nil {
		return nil
	}
	for _, c := range snap.Customers {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("customer %d: %w", c.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", t.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, c := range snap.Customers {
		if err := q.UpsertCustomer(ctx, UpsertCustomerParams{ID: c.ID, Name: c.Name}); err != nil {
			return fmt.Errorf("upsert customer %d: %w", c.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		err := q.UpsertTransaction(ctx, UpsertTransactionParams{
			ID:         t.ID,
			CustomerID: t.CustomerID,
			Date:       t.Date,
			Amount:     t.Amount,
		})
		if err != nil {
			return fmt.Errorf("upsert transaction %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Snapshot imported into SQLite",
		applog.FieldCustomers, len(snap.Customers),
		applog.FieldTransactions, len(snap.Transactions))
	return nil
}

// Counts returns the number of stored customers and transactions.
func (r *SQLiteRepository) Counts(ctx context.Context) (customers, transactions int64, err error) {
	row, err := r.queries.CountRows(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count rows: %w", err)
	}
	return row.Customers, row.Transactions, nil
}

// Health reports the schema version and row counts for readiness checks.
func (r *SQLiteRepository) Health(ctx context.Context) (map[string]any, error) {
	customers, transactions, err := r.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"schema_version": r.schemaVersion,
		"customers":      customers,
		"transactions":   transactions,
	}, nil
}
