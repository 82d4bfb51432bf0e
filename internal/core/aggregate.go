package core

// AggregateByCustomer sums amounts per customer.
//
// Labels follow the customer collection order and every customer gets a bar,
// zero when it has no matching transaction. Transactions referencing an
// unknown customer are grouped after the known ones, in first-occurrence
// order, so the points always add up to the input total.
func AggregateByCustomer(txs []Transaction, customers []Customer) ChartSeries {
	sums := make(map[int64]float64, len(customers))
	var unknown []int64
	known := make(map[int64]bool, len(customers))
	for _, c := range customers {
		known[c.ID] = true
	}
	for _, t := range txs {
		if _, seen := sums[t.CustomerID]; !seen && !known[t.CustomerID] {
			unknown = append(unknown, t.CustomerID)
		}
		sums[t.CustomerID] += t.Amount
	}

	series := EmptySeries()
	emitted := make(map[int64]bool, len(customers))
	for _, c := range customers {
		if emitted[c.ID] {
			continue
		}
		emitted[c.ID] = true
		series.Labels = append(series.Labels, c.Name)
		series.Points = append(series.Points, sums[c.ID])
	}
	for _, id := range unknown {
		series.Labels = append(series.Labels, UnknownCustomerLabel(id))
		series.Points = append(series.Points, sums[id])
	}
	return series
}

// AggregateByCustomerDay sums one customer's amounts per date. Dates keep
// their first-occurrence order; they are not sorted.
func AggregateByCustomerDay(txs []Transaction, customerID int64) ChartSeries {
	series := EmptySeries()
	pos := make(map[string]int)
	for _, t := range txs {
		if t.CustomerID != customerID {
			continue
		}
		i, ok := pos[t.Date]
		if !ok {
			i = len(series.Labels)
			pos[t.Date] = i
			series.Labels = append(series.Labels, t.Date)
			series.Points = append(series.Points, 0)
		}
		series.Points[i] += t.Amount
	}
	return series
}

// Aggregate picks the aggregation mode from the filter state.
func Aggregate(txs []Transaction, customers []Customer, f FilterState) ChartSeries {
	if f.SelectedCustomerID != nil {
		return AggregateByCustomerDay(txs, *f.SelectedCustomerID)
	}
	return AggregateByCustomer(txs, customers)
}
