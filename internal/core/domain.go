package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	ModeByCustomer    ChartMode = "by_customer"
	ModeByCustomerDay ChartMode = "by_customer_day"
)

type (
	ChartMode string

	Customer struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Transaction dates are opaque keys: grouped and compared as strings.
	Transaction struct {
		ID         int64   `json:"id"`
		CustomerID int64   `json:"customer_id"`
		Date       string  `json:"date"`
		Amount     float64 `json:"amount"`
	}

	// FilterState holds the active filter criteria. A nil field means the
	// filter is not applied.
	FilterState struct {
		SelectedCustomerID *int64
		MinAmount          *float64
	}

	// ChartSeries is the derived (labels, points) pair for the bar chart.
	// Labels and Points always have the same length.
	ChartSeries struct {
		Labels []string  `json:"labels"`
		Points []float64 `json:"points"`
	}
)

var (
	ErrInvalidCustomerID = errors.New("invalid customer id")
	ErrEmptyName         = errors.New("empty customer name")
	ErrInvalidDate       = errors.New("empty transaction date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidID         = errors.New("invalid id")
)

// EmptySeries returns a series with non-nil empty slices.
func EmptySeries() ChartSeries {
	return ChartSeries{Labels: []string{}, Points: []float64{}}
}

// Len returns the number of bars in the series.
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// Total sums all points.
func (s ChartSeries) Total() float64 {
	var total float64
	for _, p := range s.Points {
		total += p
	}
	return total
}

// Mode reports which aggregation drives the chart for this filter.
func (f FilterState) Mode() ChartMode {
	if f.SelectedCustomerID != nil {
		return ModeByCustomerDay
	}
	return ModeByCustomer
}

// Clone returns a copy that shares no pointers with f.
func (f FilterState) Clone() FilterState {
	var out FilterState
	if f.SelectedCustomerID != nil {
		id := *f.SelectedCustomerID
		out.SelectedCustomerID = &id
	}
	if f.MinAmount != nil {
		m := *f.MinAmount
		out.MinAmount = &m
	}
	return out
}

func (c Customer) Validate() error {
	if c.ID <= 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return errors.New("customer name too long (max 200 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.ID <= 0 {
		return ErrInvalidID
	}
	if t.CustomerID <= 0 {
		return ErrInvalidCustomerID
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrInvalidDate
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

// UnknownCustomerLabel is the display label for a customer id that has no
// matching record in the snapshot.
func UnknownCustomerLabel(id int64) string {
	return "Unknown #" + strconv.FormatInt(id, 10)
}
