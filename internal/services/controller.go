package services

import (
	"context"
	"io"
	"sync"

	"custdash/internal/core"
	applog "custdash/internal/log"
)

// ChartCanvas is a rendering resource bound to one ChartSeries. It must be
// released exactly once.
type ChartCanvas interface {
	Render(w io.Writer) error
	Release() error
}

// ChartRenderer hands out chart canvases.
type ChartRenderer interface {
	Acquire(series core.ChartSeries) (ChartCanvas, error)
}

// View is a read-only copy of the controller state for the presentation layer.
type View struct {
	Customers    []core.Customer
	Transactions []core.Transaction
	Series       core.ChartSeries
	Mode         core.ChartMode
	Filter       core.FilterState
	Loaded       bool

	snapshot *core.Snapshot
}

// CustomerName resolves a transaction's customer through the snapshot index.
func (v View) CustomerName(id int64) string {
	return v.snapshot.CustomerName(id)
}

// Controller owns the snapshot and filter state of one dashboard session and
// keeps the filtered list, the chart series and the chart canvas derived from
// them.
type Controller struct {
	mu       sync.Mutex
	snapshot *core.Snapshot
	filter   core.FilterState
	filtered []core.Transaction
	series   core.ChartSeries
	renderer ChartRenderer
	canvas   ChartCanvas
	closed   bool
	logger   *applog.Logger
	events   *applog.StructuredLogger
}

// NewController creates a controller with no snapshot and both filters unset.
// renderer may be nil when no chart is drawn.
func NewController(renderer ChartRenderer, logger *applog.Logger) *Controller {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentDashboard)
	return &Controller{
		filtered: []core.Transaction{},
		series:   core.EmptySeries(),
		renderer: renderer,
		logger:   logger,
		events:   applog.NewStructuredLogger(logger),
	}
}

// Load installs the snapshot. Only the first call has an effect; a nil
// snapshot is treated as "no data". Reports whether the snapshot was installed.
func (c *Controller) Load(snapshot *core.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil {
		return false
	}
	if snapshot == nil {
		c.logger.Warn("Data unavailable, showing empty dashboard",
			applog.FieldOperation, applog.OpLoad,
			"error_type", applog.ErrorTypeUnavailable)
		snapshot = core.EmptySnapshot()
	}
	c.snapshot = snapshot
	c.recompute(applog.OpLoad)
	return true
}

// SelectCustomer sets the selected customer (nil means all) and recomputes.
func (c *Controller) SelectCustomer(customerID *int64) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if customerID == nil {
		c.filter.SelectedCustomerID = nil
	} else {
		id := *customerID
		c.filter.SelectedCustomerID = &id
	}
	c.recompute(applog.OpSelectCustomer)
	return c.view()
}

// SetMinAmount sets the amount threshold (nil means none) and recomputes.
// The threshold must already be validated by the caller.
func (c *Controller) SetMinAmount(minAmount *float64) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if minAmount == nil {
		c.filter.MinAmount = nil
	} else {
		v := *minAmount
		c.filter.MinAmount = &v
	}
	c.recompute(applog.OpSetMinAmount)
	return c.view()
}

// View returns a copy of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// RenderView returns the current view and writes the chart canvas bound to
// it under one lock, so table and chart always come from the same state.
// Nothing is written when no canvas is held.
func (c *Controller) RenderView(w io.Writer) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view()
	if c.canvas == nil {
		return v, nil
	}
	return v, c.canvas.Render(w)
}

// Close releases the chart canvas. Later mutations still recompute the
// derived state but no longer acquire canvases.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.releaseCanvas()
}

func (c *Controller) view() View {
	v := View{
		Customers:    []core.Customer{},
		Transactions: append([]core.Transaction{}, c.filtered...),
		Series: core.ChartSeries{
			Labels: append([]string{}, c.series.Labels...),
			Points: append([]float64{}, c.series.Points...),
		},
		Mode:   c.filter.Mode(),
		Filter: c.filter.Clone(),
		Loaded: c.snapshot != nil,

		snapshot: c.snapshot,
	}
	if c.snapshot != nil {
		v.Customers = append(v.Customers, c.snapshot.Customers...)
	}
	return v
}

// recompute derives the filtered list and series from the snapshot and
// filter, then swaps the chart canvas. Callers hold c.mu.
func (c *Controller) recompute(op string) {
	if c.snapshot == nil {
		c.filtered = []core.Transaction{}
		c.series = core.EmptySeries()
		return
	}

	c.filtered = core.ApplyFilters(c.snapshot.Transactions, c.filter)
	if c.filtered == nil {
		c.filtered = []core.Transaction{}
	}
	c.series = core.Aggregate(c.filtered, c.snapshot.Customers, c.filter)

	if err := c.releaseCanvas(); err != nil {
		c.logger.Error("Failed to release chart canvas",
			applog.FieldOperation, op, applog.FieldError, err)
	}
	if !c.closed && c.renderer != nil {
		canvas, err := c.renderer.Acquire(c.series)
		if err != nil {
			c.logger.Error("Failed to acquire chart canvas",
				applog.FieldOperation, op, applog.FieldError, err)
		} else {
			c.canvas = canvas
		}
	}

	c.events.LogFilterChanged(context.Background(), op, string(c.filter.Mode()),
		c.filter.SelectedCustomerID, c.filter.MinAmount,
		len(c.filtered), c.series.Len())
}

func (c *Controller) releaseCanvas() error {
	if c.canvas == nil {
		return nil
	}
	canvas := c.canvas
	c.canvas = nil
	return canvas.Release()
}
