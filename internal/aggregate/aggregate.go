// Package aggregate holds the pure reductions the dashboard views are built
// from. Nothing here mutates its input; nil pointers are nulls and are
// skipped unless a function says otherwise.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

// HourlyCounts counts timestamps per UTC hour.
func HourlyCounts(times []*time.Time) []model.Bucket {
	return BucketCounts(times, time.Hour)
}

// BucketCounts counts timestamps per fixed-width bucket, ascending by start.
// Only buckets with at least one timestamp are returned.
func BucketCounts(times []*time.Time, width time.Duration) []model.Bucket {
	if width <= 0 {
		width = time.Hour
	}
	counts := make(map[int64]int64)
	for _, ts := range times {
		if ts == nil {
			continue
		}
		counts[ts.UTC().Truncate(width).Unix()]++
	}

	out := make([]model.Bucket, 0, len(counts))
	for start, n := range counts {
		out = append(out, model.Bucket{Start: time.Unix(start, 0).UTC(), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// MeanByGroup averages values per group in first-seen group order. groups
// and values are parallel; extra entries in the longer slice are ignored.
// A group whose values are all null is omitted.
func MeanByGroup(groups []string, values []*float64) []model.GroupValue {
	type acc struct {
		sum float64
		n   int
	}
	n := len(groups)
	if len(values) < n {
		n = len(values)
	}

	var order []string
	sums := make(map[string]*acc)
	for i := 0; i < n; i++ {
		if values[i] == nil {
			continue
		}
		a, ok := sums[groups[i]]
		if !ok {
			a = &acc{}
			sums[groups[i]] = a
			order = append(order, groups[i])
		}
		a.sum += *values[i]
		a.n++
	}

	out := make([]model.GroupValue, 0, len(order))
	for _, g := range order {
		a := sums[g]
		out = append(out, model.GroupValue{Group: g, Value: a.sum / float64(a.n)})
	}
	return out
}

// TopN returns at most n entries ordered by value. Equal values keep their
// input order.
func TopN(series []model.GroupValue, n int, descending bool) []model.GroupValue {
	if n <= 0 || len(series) == 0 {
		return []model.GroupValue{}
	}
	sorted := make([]model.GroupValue, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Value < sorted[j].Value
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// ValueCounts tallies distinct values, most frequent first; ties keep
// first-seen order. Empty strings are counted like any other value.
func ValueCounts(values []string) []model.ValueCount {
	idx := make(map[string]int)
	out := make([]model.ValueCount, 0)
	for _, v := range values {
		if i, ok := idx[v]; ok {
			out[i].Count++
			continue
		}
		idx[v] = len(out)
		out = append(out, model.ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Distinct returns the unique values in first-seen order, skipping empty
// strings.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SeriesStats summarizes the non-null values. Last is the last non-null
// value in input order.
func SeriesStats(values []*float64) model.Stats {
	var st model.Stats
	var sum float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if st.Count == 0 {
			st.Min, st.Max = *v, *v
		} else {
			st.Min = math.Min(st.Min, *v)
			st.Max = math.Max(st.Max, *v)
		}
		sum += *v
		st.Last = *v
		st.Count++
	}
	if st.Count == 0 {
		return model.Stats{}
	}
	st.Mean = sum / float64(st.Count)
	st.OK = true
	return st
}

// Mean averages the non-null values. ok is false when there are none.
func Mean(values []*float64) (mean float64, ok bool) {
	st := SeriesStats(values)
	return st.Mean, st.OK
}

// Histogram splits the non-null values into bins equal-width bins spanning
// [min, max]. The last bin is closed on both ends. A constant series yields
// a single bin.
func Histogram(values []*float64, bins int) []model.HistogramBin {
	if bins <= 0 {
		bins = model.DefaultHistogramBins
	}
	st := SeriesStats(values)
	if !st.OK {
		return []model.HistogramBin{}
	}
	if st.Max == st.Min {
		return []model.HistogramBin{{Lower: st.Min, Upper: st.Max, Count: int64(st.Count)}}
	}

	// Edges and positions stay finite for any finite Min and Max.
	n := float64(bins)
	edge := func(i int) float64 {
		f := float64(i) / n
		return st.Min*(1-f) + st.Max*f
	}
	out := make([]model.HistogramBin, bins)
	for i := range out {
		out[i].Lower = edge(i)
		out[i].Upper = edge(i + 1)
	}
	out[0].Lower = st.Min
	out[bins-1].Upper = st.Max

	width := st.Max/n - st.Min/n
	for _, v := range values {
		if v == nil {
			continue
		}
		pos := *v/width - st.Min/width
		i := 0
		if pos > 0 {
			i = min(int(pos), bins-1)
		}
		out[i].Count++
	}
	return out
}

// NullPolicy decides how rows with an unparseable status code count toward
// the success rate.
type NullPolicy int

const (
	// NullsInTotal counts null codes in the denominator only.
	NullsInTotal NullPolicy = iota
	// NullsExcluded drops null codes from both sides.
	NullsExcluded
)

// ParseNullPolicy maps a config value to a policy. Unknown values select
// NullsInTotal.
func ParseNullPolicy(s string) NullPolicy {
	switch s {
	case "exclude", "excluded", "nulls-excluded":
		return NullsExcluded
	default:
		return NullsInTotal
	}
}

func (p NullPolicy) String() string {
	if p == NullsExcluded {
		return "excluded"
	}
	return "in-total"
}

// SuccessRate is the percentage of rows whose status code is exactly 200.
// It is 0 when the denominator is empty.
func SuccessRate(codes []*int, policy NullPolicy) float64 {
	var ok, total int64
	for _, c := range codes {
		if c == nil {
			if policy == NullsInTotal {
				total++
			}
			continue
		}
		total++
		if *c == 200 {
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total) * 100
}

// Ratio returns num/den as a percentage, guarding den with max(den, 1).
func Ratio(num, den int64) float64 {
	if den < 1 {
		den = 1
	}
	return float64(num) / float64(den) * 100
}
