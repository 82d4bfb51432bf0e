package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"custdash/internal/core"
)

// Document is the json-server style layout of a db.json file.
type Document struct {
	Customers    []core.Customer    `json:"customers"`
	Transactions []core.Transaction `json:"transactions"`
}

// Store keeps customers and transactions in memory, in insertion order.
// A store opened from a file writes every change back to it.
type Store struct {
	mu           sync.Mutex
	path         string
	customers    []core.Customer
	transactions []core.Transaction
}

func New(customers []core.Customer, transactions []core.Transaction) *Store {
	return &Store{
		customers:    append([]core.Customer(nil), customers...),
		transactions: append([]core.Transaction(nil), transactions...),
	}
}

// NewFromFile loads a db.json document. A missing file yields the demo data
// set, which is written to path on the first change; an unreadable or
// malformed file is an error.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s := Demo()
		s.path = path
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s := New(doc.Customers, doc.Transactions)
	s.path = path
	return s, nil
}

// Decode reads a Document from r.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Demo returns a store seeded with a small fixed data set.
func Demo() *Store {
	return New(
		[]core.Customer{
			{ID: 1, Name: "Ahmed Ali"},
			{ID: 2, Name: "Aya Elsayed"},
			{ID: 3, Name: "Mina Adel"},
			{ID: 4, Name: "Sarah Reda"},
			{ID: 5, Name: "Mohamed Sayed"},
		},
		[]core.Transaction{
			{ID: 1, CustomerID: 1, Date: "2022-01-01", Amount: 1000},
			{ID: 2, CustomerID: 1, Date: "2022-01-02", Amount: 2000},
			{ID: 3, CustomerID: 2, Date: "2022-01-01", Amount: 550},
			{ID: 4, CustomerID: 3, Date: "2022-01-01", Amount: 500},
			{ID: 5, CustomerID: 2, Date: "2022-01-02", Amount: 1300},
			{ID: 6, CustomerID: 4, Date: "2022-01-01", Amount: 750},
			{ID: 7, CustomerID: 3, Date: "2022-01-02", Amount: 1250},
			{ID: 8, CustomerID: 5, Date: "2022-01-01", Amount: 2500},
			{ID: 9, CustomerID: 5, Date: "2022-01-02", Amount: 875},
		},
	)
}

// FetchSnapshot implements sources.SnapshotFetcher
func (s *Store) FetchSnapshot(ctx context.Context) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.NewSnapshot(s.customers, s.transactions), nil
}

// UpsertCustomer implements sources.CustomerWriter
func (s *Store) UpsertCustomer(_ context.Context, c core.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.update(func(doc *Document) {
		doc.Customers = upsertCustomer(doc.Customers, c)
	})
}

// UpsertTransaction implements sources.TransactionWriter
func (s *Store) UpsertTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.update(func(doc *Document) {
		doc.Transactions = upsertTransaction(doc.Transactions, t)
	})
}

// ImportSnapshot upserts every record of snap with a single write to the
// backing file. Nothing changes when any record is invalid.
func (s *Store) ImportSnapshot(_ context.Context, snap *core.Snapshot) error {
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
	return s.update(func(doc *Document) {
		for _, c := range snap.Customers {
			doc.Customers = upsertCustomer(doc.Customers, c)
		}
		for _, t := range snap.Transactions {
			doc.Transactions = upsertTransaction(doc.Transactions, t)
		}
	})
}

// update applies fn to a copy of the data, persists the copy when the store
// is file backed and only then makes it current.
func (s *Store) update(fn func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{
		Customers:    append([]core.Customer{}, s.customers...),
		Transactions: append([]core.Transaction{}, s.transactions...),
	}
	fn(&doc)
	if s.path != "" {
		if err := writeDocument(s.path, doc); err != nil {
			return err
		}
	}
	s.customers, s.transactions = doc.Customers, doc.Transactions
	return nil
}

func upsertCustomer(customers []core.Customer, c core.Customer) []core.Customer {
	for i := range customers {
		if customers[i].ID == c.ID {
			customers[i] = c
			return customers
		}
	}
	return append(customers, c)
}

func upsertTransaction(transactions []core.Transaction, t core.Transaction) []core.Transaction {
	for i := range transactions {
		if transactions[i].ID == t.ID {
			transactions[i] = t
			return transactions
		}
	}
	return append(transactions, t)
}

// writeDocument replaces path atomically so readers never see a partial file.
func writeDocument(path string, doc Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
