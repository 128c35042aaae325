package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/loader"
	"github.com/tinytelemetry/sheetboard/internal/model"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrF(v float64) *float64        { return &v }
func ptrI(v int) *int                { return &v }

func TestHourlyCounts_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	times := []*time.Time{
		ptrTime(base.Add(2*time.Hour + 5*time.Minute)),
		ptrTime(base.Add(59 * time.Minute)),
		nil,
		ptrTime(base),
		ptrTime(base.Add(2 * time.Hour)),
		ptrTime(base.Add(-30 * time.Minute)),
	}

	got := HourlyCounts(times)
	want := []model.Bucket{
		{Start: base.Add(-time.Hour), Count: 1},
		{Start: base, Count: 2},
		{Start: base.Add(2 * time.Hour), Count: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("buckets = %v, want %v", got, want)
	}
	var sum int64
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || got[i].Count != want[i].Count {
			t.Errorf("bucket %d = %+v, want %+v", i, got[i], want[i])
		}
		if i > 0 && got[i].Start.Before(got[i-1].Start) {
			t.Errorf("bucket %d out of order", i)
		}
		sum += got[i].Count
	}
	if sum != 5 {
		t.Errorf("sum = %d, want 5 non-null timestamps", sum)
	}
}

func TestHourlyCounts_NonUTCInputBucketsInUTC(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("UTC+5:30", 5*3600+1800)
	ts := time.Date(2024, 1, 1, 15, 40, 0, 0, zone) // 10:10 UTC
	got := HourlyCounts([]*time.Time{&ts})
	if len(got) != 1 || !got[0].Start.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %+v, want one 10:00 UTC bucket", got)
	}
}

func TestBucketCounts_Width(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got := BucketCounts([]*time.Time{ptrTime(base.Add(time.Minute)), ptrTime(base.Add(16 * time.Minute))}, 15*time.Minute)
	if len(got) != 2 || !got[1].Start.Equal(base.Add(15*time.Minute)) {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadedRequestsHourlyScenario(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"Timestamp", "Duration", "StatusCode"},
		{"2024-01-01T10:05:00", "120", "200"},
		{"bad-date", "50", "200"},
	}
	tbl, err := loader.New().Load(model.TableRequests, rows)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Requests) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Requests))
	}

	times := make([]*time.Time, 0, len(tbl.Requests))
	for _, r := range tbl.Requests {
		times = append(times, r.Timestamp)
	}
	got := HourlyCounts(times)
	if len(got) != 1 {
		t.Fatalf("buckets = %+v, want 1", got)
	}
	if !got[0].Start.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) || got[0].Count != 1 {
		t.Errorf("bucket = %+v, want 2024-01-01T10:00 count 1", got[0])
	}
}

func TestEmptyErrorsTable(t *testing.T) {
	t.Parallel()

	tbl := loader.New().Empty(model.TableErrors)

	types := make([]string, 0, len(tbl.Errors))
	times := make([]*time.Time, 0, len(tbl.Errors))
	for _, e := range tbl.Errors {
		types = append(types, e.Type)
		times = append(times, e.Timestamp)
	}
	if got := ValueCounts(types); got == nil || len(got) != 0 {
		t.Errorf("ValueCounts = %#v, want empty slice", got)
	}
	if got := HourlyCounts(times); got == nil || len(got) != 0 {
		t.Errorf("HourlyCounts = %#v, want empty slice", got)
	}
}

func TestMeanByGroup(t *testing.T) {
	t.Parallel()

	groups := []string{"/a", "/b", "/a", "/c", "/b", "/a"}
	values := []*float64{ptrF(100), nil, ptrF(200), nil, ptrF(50), nil}

	got := MeanByGroup(groups, values)
	want := []model.GroupValue{{Group: "/a", Value: 150}, {Group: "/b", Value: 50}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v (all-null /c omitted)", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMeanByGroup_MismatchedLengths(t *testing.T) {
	t.Parallel()

	got := MeanByGroup([]string{"a", "b"}, []*float64{ptrF(1)})
	if len(got) != 1 || got[0].Group != "a" {
		t.Fatalf("got %+v", got)
	}
}

func TestTopN(t *testing.T) {
	t.Parallel()

	series := []model.GroupValue{
		{Group: "first", Value: 10},
		{Group: "low", Value: 1},
		{Group: "second", Value: 10},
		{Group: "high", Value: 99},
	}

	tests := []struct {
		name       string
		n          int
		descending bool
		want       []string
	}{
		{"descending ties stable", 10, true, []string{"high", "first", "second", "low"}},
		{"ascending ties stable", 10, false, []string{"low", "first", "second", "high"}},
		{"truncated", 2, true, []string{"high", "first"}},
		{"zero", 0, true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopN(series, tt.n, tt.descending)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].Group != tt.want[i] {
					t.Errorf("item %d = %s, want %s", i, got[i].Group, tt.want[i])
				}
			}
		})
	}

	if series[0].Group != "first" || series[3].Group != "high" {
		t.Error("TopN must not reorder its input")
	}
}

func TestValueCounts(t *testing.T) {
	t.Parallel()

	got := ValueCounts([]string{"GET", "POST", "GET", "PUT", "POST", "GET", "DELETE"})
	want := []model.ValueCount{
		{Value: "GET", Count: 3},
		{Value: "POST", Count: 2},
		{Value: "PUT", Count: 1},
		{Value: "DELETE", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDistinct(t *testing.T) {
	t.Parallel()

	got := Distinct([]string{"cpu", "", "mem", "cpu", "disk", "mem"})
	want := []string{"cpu", "mem", "disk"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSeriesStats(t *testing.T) {
	t.Parallel()

	st := SeriesStats([]*float64{ptrF(4), nil, ptrF(-2), ptrF(10), nil})
	if !st.OK || st.Count != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Last != 10 || st.Min != -2 || st.Max != 10 || st.Mean != 4 {
		t.Errorf("stats = %+v, want last 10 min -2 max 10 mean 4", st)
	}

	if empty := SeriesStats([]*float64{nil, nil}); empty.OK || empty.Count != 0 {
		t.Errorf("all-null stats = %+v, want no data", empty)
	}
}

func TestMean(t *testing.T) {
	t.Parallel()

	if m, ok := Mean([]*float64{ptrF(100), nil, ptrF(200)}); !ok || m != 150 {
		t.Errorf("Mean = %v,%v want 150,true", m, ok)
	}
	if _, ok := Mean(nil); ok {
		t.Error("Mean(nil) should report no data")
	}
}

func TestHistogram(t *testing.T) {
	t.Parallel()

	values := []*float64{ptrF(0), ptrF(1), ptrF(2), ptrF(3), nil, ptrF(10)}
	got := Histogram(values, 5)
	if len(got) != 5 {
		t.Fatalf("bins = %d, want 5", len(got))
	}
	var total int64
	for _, b := range got {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if got[0].Count != 2 || got[1].Count != 2 || got[4].Count != 1 {
		t.Errorf("bins = %+v", got)
	}
	if got[4].Upper != 10 {
		t.Errorf("last upper = %v, want 10", got[4].Upper)
	}

	if one := Histogram([]*float64{ptrF(5), ptrF(5)}, 30); len(one) != 1 || one[0].Count != 2 {
		t.Errorf("constant series = %+v, want one bin", one)
	}
	if none := Histogram(nil, 30); len(none) != 0 {
		t.Errorf("empty series = %+v", none)
	}
}

func TestHistogram_ExtremeRange(t *testing.T) {
	t.Parallel()

	values := []*float64{ptrF(-math.MaxFloat64), ptrF(0), ptrF(math.MaxFloat64)}
	got := Histogram(values, 4)
	if len(got) != 4 {
		t.Fatalf("bins = %d, want 4", len(got))
	}
	if got[0].Count != 1 || got[2].Count != 1 || got[3].Count != 1 {
		t.Errorf("bins = %+v, want min, zero and max in bins 0, 2 and 3", got)
	}
	for i, b := range got {
		if math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) || math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			t.Errorf("bin %d edges = [%v, %v], want finite", i, b.Lower, b.Upper)
		}
	}
}

func TestSuccessRate(t *testing.T) {
	t.Parallel()

	codes := []*int{ptrI(200), ptrI(200), ptrI(500), nil}

	if got := SuccessRate(codes, NullsInTotal); math.Abs(got-50) > 1e-9 {
		t.Errorf("NullsInTotal = %v, want 50", got)
	}
	if got := SuccessRate(codes, NullsExcluded); math.Abs(got-200.0/3) > 1e-9 {
		t.Errorf("NullsExcluded = %v, want 66.67", got)
	}
	if got := SuccessRate(nil, NullsInTotal); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := SuccessRate([]*int{nil}, NullsExcluded); got != 0 {
		t.Errorf("all-null excluded = %v, want 0", got)
	}
}

func TestParseNullPolicy(t *testing.T) {
	t.Parallel()

	if ParseNullPolicy("exclude") != NullsExcluded {
		t.Error("exclude should parse to NullsExcluded")
	}
	if ParseNullPolicy("") != NullsInTotal || ParseNullPolicy("bogus") != NullsInTotal {
		t.Error("default should be NullsInTotal")
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	if got := Ratio(5, 0); got != 500 {
		t.Errorf("Ratio(5,0) = %v, want 500 (den guarded to 1)", got)
	}
	if got := Ratio(1, 4); got != 25 {
		t.Errorf("Ratio(1,4) = %v, want 25", got)
	}
}
