// Package charts renders cumulative time-series PNG charts for daily
// metric histories. Rendered files are temporary: the caller attaches them
// to a response and removes them after delivery.
package charts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

// MinPoints is the smallest history length worth charting.
const MinPoints = 2

// ErrNotEnoughPoints is returned when fewer than MinPoints points are given.
var ErrNotEnoughPoints = errors.New("charts: at least two points required")

// Point is one (timestamp, amount) event; amounts are accumulated in order.
type Point struct {
	Time   time.Time
	Amount float64
}

// Renderer writes chart PNGs into a directory.
type Renderer struct {
	dir string
}

// NewRenderer creates a Renderer writing into dir, or the system temp
// directory when dir is empty.
func NewRenderer(dir string) *Renderer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Renderer{dir: dir}
}

// RenderCumulative plots the running total of the given points and returns
// the path of the written PNG. slug distinguishes concurrent charts for the
// same user (e.g. "water", "calories").
func (r *Renderer) RenderCumulative(userID int64, slug, title, yLabel string, points []Point) (string, error) {
	if len(points) < MinPoints {
		return "", ErrNotEnoughPoints
	}

	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	var total float64
	for _, p := range points {
		total += p.Amount
		xs = append(xs, p.Time)
		ys = append(ys, total)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Name:           "Время",
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis: chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.TimeSeries{XValues: xs, YValues: ys},
		},
	}

	path := filepath.Join(r.dir, fmt.Sprintf("habit_%s_%d_%d.png", slug, userID, time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("charts: create %s: %w", path, err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("charts: render: %w", err)
	}

	slog.Debug("Chart rendered", "userID", userID, "slug", slug, "points", len(points), "path", path)
	return path, nil
}
