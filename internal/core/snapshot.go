package core

// Snapshot is the immutable pair of collections loaded once from a data
// source, plus an id index built at construction time.
type Snapshot struct {
	Customers    []Customer
	Transactions []Transaction

	byID map[int64]int
}

// NewSnapshot copies the collections and indexes customers by id. When ids
// repeat, the first occurrence wins.
func NewSnapshot(customers []Customer, transactions []Transaction) *Snapshot {
	s := &Snapshot{
		Customers:    append([]Customer{}, customers...),
		Transactions: append([]Transaction{}, transactions...),
		byID:         make(map[int64]int, len(customers)),
	}
	for i, c := range s.Customers {
		if _, dup := s.byID[c.ID]; dup {
			continue
		}
		s.byID[c.ID] = i
	}
	return s
}

// EmptySnapshot is what a failed or empty fetch degrades to.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil, nil)
}

// Customer looks up a customer by id.
func (s *Snapshot) Customer(id int64) (Customer, bool) {
	if s == nil {
		return Customer{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Customer{}, false
	}
	return s.Customers[i], true
}

// CustomerName returns the customer's name or the unknown label.
func (s *Snapshot) CustomerName(id int64) string {
	if c, ok := s.Customer(id); ok {
		return c.Name
	}
	return UnknownCustomerLabel(id)
}

// IsEmpty reports whether the snapshot carries no data at all.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (len(s.Customers) == 0 && len(s.Transactions) == 0)
}

// Orphans returns the transactions whose customer id is not in the index.
func (s *Snapshot) Orphans() []Transaction {
	if s == nil {
		return nil
	}
	var out []Transaction
	for _, t := range s.Transactions {
		if _, ok := s.byID[t.CustomerID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
