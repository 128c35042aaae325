// Package charts renders dashboard series as PNG images. Rendered images
// are memoized by a hash of their input so repeated polls within the data
// TTL cost one render.
package charts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotEnoughData means the series cannot be drawn meaningfully, for
// example a line with fewer than two distinct x values.
var ErrNotEnoughData = errors.New("charts: not enough data to draw")

// Config sizes the images and the render cache.
type Config struct {
	Width     int
	Height    int
	CacheSize int
	CacheTTL  time.Duration
}

// Renderer draws charts. It is safe for concurrent use.
type Renderer struct {
	width, height int
	cache         *expirable.LRU[uint64, []byte]
}

// NewRenderer creates a renderer. Zero config values get defaults.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = 960
	}
	if cfg.Height <= 0 {
		cfg.Height = 360
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = model.DefaultCacheTTL
	}
	return &Renderer{
		width:  cfg.Width,
		height: cfg.Height,
		cache:  expirable.NewLRU[uint64, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// CachedImages reports how many rendered images are held.
func (r *Renderer) CachedImages() int { return r.cache.Len() }

var (
	colorRequests = drawing.ColorFromHex("1f77b4")
	colorErrors   = drawing.ColorFromHex("d62728")
	colorMetric   = drawing.ColorFromHex("2ca02c")
)

// HourlyCounts draws bucket counts as a line over time.
func (r *Renderer) HourlyCounts(title string, buckets []model.Bucket, isErrors bool) ([]byte, error) {
	times := make([]time.Time, len(buckets))
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		times[i] = b.Start
		values[i] = float64(b.Count)
	}
	col := colorRequests
	if isErrors {
		col = colorErrors
	}
	return r.timeSeries("hourly", title, "count", times, values, col)
}

// MetricSeries draws one metric's points over time.
func (r *Renderer) MetricSeries(name string, points []model.MetricPoint) ([]byte, error) {
	times := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		times[i] = p.Timestamp
		values[i] = p.Value
	}
	return r.timeSeries("metric", name, name, times, values, colorMetric)
}

// GroupBars draws one bar per group, in input order.
func (r *Renderer) GroupBars(title string, series []model.GroupValue) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrNotEnoughData
	}
	var maxV float64
	for _, g := range series {
		maxV = math.Max(maxV, g.Value)
	}
	if maxV <= 0 {
		return nil, ErrNotEnoughData
	}

	key := newKey("bars", title)
	for _, g := range series {
		key.str(g.Group).float(g.Value)
	}
	return r.memo(key.sum(), func() ([]byte, error) {
		bars := make([]chart.Value, len(series))
		for i, g := range series {
			bars[i] = chart.Value{Label: g.Group, Value: g.Value}
		}
		bc := chart.BarChart{
			Title:      title,
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
			Width:      r.width,
			Height:     r.height,
			BarWidth:   barWidth(r.width, len(bars)),
			YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: maxV * 1.1}},
			Bars:       bars,
		}
		var buf bytes.Buffer
		if err := bc.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", title, err)
		}
		return buf.Bytes(), nil
	})
}

func (r *Renderer) timeSeries(kind, title, yName string, times []time.Time, values []float64, col drawing.Color) ([]byte, error) {
	if !drawable(times) {
		return nil, ErrNotEnoughData
	}

	key := newKey(kind, title)
	for i := range times {
		key.int(times[i].UnixNano()).float(values[i])
	}
	return r.memo(key.sum(), func() ([]byte, error) {
		ch := chart.Chart{
			Title:      title,
			Width:      r.width,
			Height:     r.height,
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
			XAxis:      chart.XAxis{Name: "Time", ValueFormatter: chart.TimeHourValueFormatter},
			YAxis:      chart.YAxis{Name: yName, Range: yRange(values)},
			Series: []chart.Series{chart.TimeSeries{
				Name:    title,
				XValues: times,
				YValues: values,
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
			}},
		}
		var buf bytes.Buffer
		if err := ch.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", title, err)
		}
		return buf.Bytes(), nil
	})
}

func (r *Renderer) memo(key uint64, render func() ([]byte, error)) ([]byte, error) {
	if img, ok := r.cache.Get(key); ok {
		return img, nil
	}
	img, err := render()
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, img)
	return img, nil
}

// yRange pads a flat series so the axis has a non-zero span. Otherwise the
// range is derived from the data.
func yRange(values []float64) chart.Range {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	pad := math.Max(math.Abs(hi)*0.1, 1)
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// drawable needs two points spanning a non-zero time range.
func drawable(times []time.Time) bool {
	if len(times) < 2 {
		return false
	}
	first := times[0]
	for _, t := range times[1:] {
		if !t.Equal(first) {
			return true
		}
	}
	return false
}

func barWidth(width, n int) int {
	w := width / (n * 2)
	switch {
	case w < 8:
		return 8
	case w > 80:
		return 80
	}
	return w
}

// key accumulates a chart's identity into an xxhash digest.
type key struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newKey(kind, title string) *key {
	k := &key{d: xxhash.New()}
	return k.str(kind).str(title)
}

func (k *key) str(s string) *key {
	k.int(int64(len(s)))
	_, _ = k.d.WriteString(s)
	return k
}

func (k *key) int(v int64) *key {
	binary.LittleEndian.PutUint64(k.buf[:], uint64(v))
	_, _ = k.d.Write(k.buf[:])
	return k
}

func (k *key) float(v float64) *key {
	return k.int(int64(math.Float64bits(v)))
}

func (k *key) sum() uint64 { return k.d.Sum64() }
