package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CustomerRow struct {
	ID   int64
	Name string
}

type TransactionRow struct {
	ID         int64
	CustomerID int64
	Date       string
	Amount     float64
}

const upsertCustomer = `
INSERT INTO customers (id, name, position)
VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM customers))
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    updated_at = CURRENT_TIMESTAMP
`

type UpsertCustomerParams struct {
	ID   int64
	Name string
}

func (q *Queries) UpsertCustomer(ctx context.Context, arg UpsertCustomerParams) error {
	_, err := q.db.ExecContext(ctx, upsertCustomer, arg.ID, arg.Name)
	return err
}

const upsertTransaction = `
INSERT INTO transactions (id, customer_id, date, amount, position)
VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM transactions))
ON CONFLICT(id) DO UPDATE SET
    customer_id = excluded.customer_id,
    date = excluded.date,
    amount = excluded.amount,
    updated_at = CURRENT_TIMESTAMP
`

type UpsertTransactionParams struct {
	ID         int64
	CustomerID int64
	Date       string
	Amount     float64
}

func (q *Queries) UpsertTransaction(ctx context.Context, arg UpsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction, arg.ID, arg.CustomerID, arg.Date, arg.Amount)
	return err
}

const listCustomers = `
SELECT id, name FROM customers ORDER BY position, id
`

func (q *Queries) ListCustomers(ctx context.Context) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CustomerRow{}
	for rows.Next() {
		var i CustomerRow
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactions = `
SELECT id, customer_id, date, amount FROM transactions ORDER BY position, id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionRow{}
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.CustomerID, &i.Date, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRows = `
SELECT (SELECT COUNT(*) FROM customers), (SELECT COUNT(*) FROM transactions)
`

type CountRowsRow struct {
	Customers    int64
	Transactions int64
}

func (q *Queries) CountRows(ctx context.Context) (CountRowsRow, error) {
	row := q.db.QueryRowContext(ctx, countRows)
	var i CountRowsRow
	err := row.Scan(&i.Customers, &i.Transactions)
	return i, err
}
