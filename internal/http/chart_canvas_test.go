package http

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"custdash/internal/core"
)

func TestHTMLChartRenderer(t *testing.T) {
	r, err := NewHTMLChartRenderer()
	if err != nil {
		t.Fatal(err)
	}

	canvas, err := r.Acquire(core.ChartSeries{
		Labels: []string{"Ahmed <Ali>", "Refunds"},
		Points: []float64{3000, -1500},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", r.Live())
	}

	var buf bytes.Buffer
	if err := canvas.Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Ahmed &lt;Ali&gt;", "3000.00", "-1500.00", "width: 100%", "width: 50%", "bar negative", "Total 1500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart output missing %q:\n%s", want, out)
		}
	}

	if err := canvas.Release(); err != nil {
		t.Fatal(err)
	}
	if r.Live() != 0 {
		t.Errorf("Live() = %d after release", r.Live())
	}
	if err := canvas.Release(); !errors.Is(err, ErrCanvasReleased) {
		t.Errorf("second Release() = %v, want ErrCanvasReleased", err)
	}
	if err := canvas.Render(&buf); !errors.Is(err, ErrCanvasReleased) {
		t.Errorf("Render after release = %v, want ErrCanvasReleased", err)
	}
	if r.Acquired() != 1 {
		t.Errorf("Acquired() = %d, want 1", r.Acquired())
	}
}

func TestHTMLChartRendererEmptyAndMismatched(t *testing.T) {
	r, _ := NewHTMLChartRenderer()

	canvas, err := r.Acquire(core.EmptySeries())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := canvas.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No data to chart") {
		t.Errorf("empty series output: %s", buf.String())
	}

	if _, err := r.Acquire(core.ChartSeries{Labels: []string{"a"}}); err == nil {
		t.Error("mismatched series should be rejected")
	}
	if r.Live() != 1 {
		t.Errorf("failed acquire must not count, Live() = %d", r.Live())
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		v, peak float64
		want    int
	}{
		{0, 0, 0},
		{0, 10, 0},
		{10, 10, 100},
		{-5, 10, 50},
		{0.01, 1000, 2},
	}
	for _, tt := range tests {
		if got := barWidth(tt.v, tt.peak); got != tt.want {
			t.Errorf("barWidth(%v, %v) = %d, want %d", tt.v, tt.peak, got, tt.want)
		}
	}
}
