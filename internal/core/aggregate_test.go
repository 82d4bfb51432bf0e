package core

import (
	"reflect"
	"testing"
)

func sumAmounts(txs []Transaction) float64 {
	var total float64
	for _, t := range txs {
		total += t.Amount
	}
	return total
}

func TestAggregateByCustomerScenario(t *testing.T) {
	got := AggregateByCustomer(sampleTransactions(), sampleCustomers())
	want := ChartSeries{Labels: []string{"A", "B"}, Points: []float64{15, 20}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AggregateByCustomer = %+v, want %+v", got, want)
	}
}

func TestAggregateByCustomerDayScenario(t *testing.T) {
	got := AggregateByCustomerDay(sampleTransactions(), 1)
	want := ChartSeries{Labels: []string{"2024-01-01", "2024-01-02"}, Points: []float64{10, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AggregateByCustomerDay = %+v, want %+v", got, want)
	}
}

func TestAggregateByCustomerZeroAndUnknown(t *testing.T) {
	customers := []Customer{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	txs := []Transaction{
		{ID: 1, CustomerID: 9, Date: "d1", Amount: 4},
		{ID: 2, CustomerID: 1, Date: "d1", Amount: 1},
		{ID: 3, CustomerID: 8, Date: "d2", Amount: 2},
		{ID: 4, CustomerID: 9, Date: "d2", Amount: 3},
	}
	got := AggregateByCustomer(txs, customers)
	want := ChartSeries{
		Labels: []string{"A", "B", "C", "Unknown #9", "Unknown #8"},
		Points: []float64{1, 0, 0, 7, 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AggregateByCustomer = %+v, want %+v", got, want)
	}
	if got.Total() != sumAmounts(txs) {
		t.Fatalf("total not conserved: %v vs %v", got.Total(), sumAmounts(txs))
	}
}

func TestAggregateConservation(t *testing.T) {
	txs := []Transaction{
		{ID: 1, CustomerID: 1, Date: "2024-02-01", Amount: 1.25},
		{ID: 2, CustomerID: 2, Date: "2024-02-01", Amount: 2.5},
		{ID: 3, CustomerID: 1, Date: "2024-02-03", Amount: 4},
		{ID: 4, CustomerID: 1, Date: "2024-02-01", Amount: 0.25},
	}
	if got := AggregateByCustomer(txs, sampleCustomers()).Total(); got != sumAmounts(txs) {
		t.Fatalf("by customer total = %v, want %v", got, sumAmounts(txs))
	}
	day := AggregateByCustomerDay(txs, 1)
	if day.Total() != sumAmounts(FilterByCustomer(txs, int64p(1))) {
		t.Fatalf("by day total = %v", day.Total())
	}
	if !reflect.DeepEqual(day.Labels, []string{"2024-02-01", "2024-02-03"}) {
		t.Fatalf("day labels = %v", day.Labels)
	}
	if !reflect.DeepEqual(day.Points, []float64{1.5, 4}) {
		t.Fatalf("day points = %v", day.Points)
	}
}

func TestAggregateFirstOccurrenceOrder(t *testing.T) {
	txs := []Transaction{
		{ID: 1, CustomerID: 1, Date: "2024-03-05", Amount: 1},
		{ID: 2, CustomerID: 1, Date: "2024-03-01", Amount: 1},
		{ID: 3, CustomerID: 1, Date: "2024-03-05", Amount: 1},
	}
	got := AggregateByCustomerDay(txs, 1)
	if !reflect.DeepEqual(got.Labels, []string{"2024-03-05", "2024-03-01"}) {
		t.Fatalf("labels not in first-occurrence order: %v", got.Labels)
	}
}

func TestAggregateEmpty(t *testing.T) {
	for name, s := range map[string]ChartSeries{
		"by customer, no customers": AggregateByCustomer(nil, nil),
		"by day":                    AggregateByCustomerDay(nil, 1),
		"by day, no match":          AggregateByCustomerDay(sampleTransactions(), 42),
	} {
		if s.Labels == nil || s.Points == nil || s.Len() != 0 || len(s.Points) != 0 {
			t.Fatalf("%s: expected empty non-nil series, got %+v", name, s)
		}
	}
}

func TestAggregateIdempotent(t *testing.T) {
	f := FilterState{MinAmount: float64p(5)}
	txs := ApplyFilters(sampleTransactions(), f)
	a := Aggregate(txs, sampleCustomers(), f)
	b := Aggregate(txs, sampleCustomers(), f)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("recompute differs: %+v vs %+v", a, b)
	}
}

func TestAggregateModeSelection(t *testing.T) {
	f := FilterState{SelectedCustomerID: int64p(2)}
	got := Aggregate(ApplyFilters(sampleTransactions(), f), sampleCustomers(), f)
	want := ChartSeries{Labels: []string{"2024-01-01"}, Points: []float64{20}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Aggregate = %+v, want %+v", got, want)
	}
}
