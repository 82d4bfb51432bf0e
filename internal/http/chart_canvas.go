package http

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"sync/atomic"

	"custdash/internal/core"
	"custdash/internal/services"
	appweb "custdash/web"
)

// ErrCanvasReleased is returned when a released canvas is used again.
var ErrCanvasReleased = errors.New("chart canvas already released")

// HTMLChartRenderer draws ChartSeries as server-side HTML bar charts. It
// tracks live canvases so leaks show up in metrics.
type HTMLChartRenderer struct {
	tmpl     *template.Template
	live     atomic.Int64
	acquired atomic.Int64
}

// NewHTMLChartRenderer parses the embedded chart template.
func NewHTMLChartRenderer() (*HTMLChartRenderer, error) {
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/chart.html")
	if err != nil {
		return nil, fmt.Errorf("parse chart template: %w", err)
	}
	return &HTMLChartRenderer{tmpl: t}, nil
}

type chartBar struct {
	Label    string
	Value    string
	Width    int
	Negative bool
}

type chartData struct {
	Total string
	Bars  []chartBar
}

// Acquire binds a new canvas to series. The bar layout is computed once here.
func (r *HTMLChartRenderer) Acquire(series core.ChartSeries) (services.ChartCanvas, error) {
	if len(series.Labels) != len(series.Points) {
		return nil, fmt.Errorf("chart series has %d labels and %d points", len(series.Labels), len(series.Points))
	}

	var peak float64
	for _, p := range series.Points {
		peak = math.Max(peak, math.Abs(p))
	}

	bars := make([]chartBar, len(series.Labels))
	for i, label := range series.Labels {
		p := series.Points[i]
		bars[i] = chartBar{
			Label:    label,
			Value:    core.FormatAmount(p),
			Width:    barWidth(p, peak),
			Negative: p < 0,
		}
	}

	r.live.Add(1)
	r.acquired.Add(1)
	return &htmlCanvas{
		owner: r,
		data:  chartData{Bars: bars, Total: core.FormatAmount(series.Total())},
	}, nil
}

// barWidth scales |v| to a percentage of peak, keeping tiny non-zero bars
// visible.
func barWidth(v, peak float64) int {
	if peak == 0 || v == 0 {
		return 0
	}
	width := int(math.Round(math.Abs(v) / peak * 100))
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// Live returns the number of acquired, unreleased canvases.
func (r *HTMLChartRenderer) Live() int64 {
	return r.live.Load()
}

// Acquired returns the number of canvases ever handed out.
func (r *HTMLChartRenderer) Acquired() int64 {
	return r.acquired.Load()
}

type htmlCanvas struct {
	owner    *HTMLChartRenderer
	data     chartData
	released atomic.Bool
}

func (c *htmlCanvas) Render(w io.Writer) error {
	if c.released.Load() {
		return ErrCanvasReleased
	}
	return c.owner.tmpl.ExecuteTemplate(w, "chart.html", c.data)
}

func (c *htmlCanvas) Release() error {
	if !c.released.CompareAndSwap(false, true) {
		return ErrCanvasReleased
	}
	c.owner.live.Add(-1)
	return nil
}
