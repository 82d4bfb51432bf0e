package core

// FilterByCustomer keeps the transactions of one customer, in input order.
// A nil id is the identity filter.
func FilterByCustomer(txs []Transaction, customerID *int64) []Transaction {
	if customerID == nil {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.CustomerID == *customerID {
			out = append(out, t)
		}
	}
	return out
}

// FilterByAmount keeps the transactions with Amount >= minAmount, in input
// order. A nil threshold is the identity filter.
func FilterByAmount(txs []Transaction, minAmount *float64) []Transaction {
	if minAmount == nil {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Amount >= *minAmount {
			out = append(out, t)
		}
	}
	return out
}

// ApplyFilters composes both filters (logical AND).
func ApplyFilters(txs []Transaction, f FilterState) []Transaction {
	return FilterByAmount(FilterByCustomer(txs, f.SelectedCustomerID), f.MinAmount)
}
