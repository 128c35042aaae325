package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/sheets"
)

// countingSource serves fixed rows per table and counts calls.
type countingSource struct {
	calls atomic.Int32
	rows  [][]string
	err   error
	block chan struct{}
}

func (s *countingSource) Fetch(ctx context.Context, table model.TableName) ([][]string, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

var requestRows = [][]string{
	{"Timestamp", "Method", "Path", "StatusCode", "Duration", "UserID"},
	{"2024-01-01T10:05:00Z", "GET", "/a", "200", "120", "u1"},
}

func TestGet_WithinTTLFetchesOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &countingSource{rows: requestRows}
	c := New(src, Config{TTL: 300 * time.Second, Clock: clock})

	first := c.Get(context.Background(), model.TableRequests)
	clock.Advance(299 * time.Second)
	second := c.Get(context.Background(), model.TableRequests)

	if src.calls.Load() != 1 {
		t.Fatalf("fetches = %d, want 1", src.calls.Load())
	}
	if first.Err != nil || second.Err != nil {
		t.Fatalf("errors: %v, %v", first.Err, second.Err)
	}
	if second.Table.Len() != 1 {
		t.Errorf("rows = %d, want 1", second.Table.Len())
	}
	if !first.FetchedAt.Equal(second.FetchedAt) {
		t.Errorf("second result should be the cached one")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Fetches != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestGet_AfterTTLRefetches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &countingSource{rows: requestRows}
	c := New(src, Config{TTL: 300 * time.Second, Clock: clock})

	c.Get(context.Background(), model.TableRequests)
	clock.Advance(301 * time.Second)
	c.Get(context.Background(), model.TableRequests)

	if src.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", src.calls.Load())
	}
}

func TestGet_ExactlyTTLIsStale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &countingSource{rows: requestRows}
	c := New(src, Config{TTL: time.Minute, Clock: clock})

	c.Get(context.Background(), model.TableRequests)
	clock.Advance(time.Minute)
	c.Get(context.Background(), model.TableRequests)

	if src.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", src.calls.Load())
	}
}

func TestGet_KeysAreIndependent(t *testing.T) {
	src := &countingSource{rows: requestRows}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	c.Get(context.Background(), model.TableRequests)
	c.Get(context.Background(), model.TableErrors)
	c.Get(context.Background(), model.TableRequests)

	if src.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", src.calls.Load())
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	src := &countingSource{rows: requestRows}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	c.Get(context.Background(), model.TableRequests)
	c.Invalidate()
	if _, ok := c.Peek(model.TableRequests); ok {
		t.Error("Peek after Invalidate should miss")
	}
	c.Get(context.Background(), model.TableRequests)

	if src.calls.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", src.calls.Load())
	}
	if c.Stats().Generation != 1 {
		t.Errorf("generation = %d, want 1", c.Stats().Generation)
	}
}

func TestGet_FailureAbsorbedAndCached(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want sheets.Kind
	}{
		{"unavailable", errors.Join(sheets.ErrSourceUnavailable, errors.New("no creds")), sheets.KindUnavailable},
		{"empty", sheets.ErrSourceEmpty, sheets.KindEmpty},
		{"error", &sheets.SourceError{Table: model.TableErrors, Err: errors.New("timeout")}, sheets.KindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{err: tt.err}
			c := New(src, Config{Clock: clockwork.NewFakeClock()})

			res := c.Get(context.Background(), model.TableErrors)
			if res.Kind() != tt.want {
				t.Fatalf("kind = %v, want %v", res.Kind(), tt.want)
			}
			if res.Table.Name != model.TableErrors || res.Table.Len() != 0 {
				t.Errorf("table = %+v, want empty Errors table", res.Table)
			}
			if len(res.Table.Header) == 0 {
				t.Error("empty table should still carry the schema header")
			}

			c.Get(context.Background(), model.TableErrors)
			if src.calls.Load() != 1 {
				t.Errorf("fetches = %d, want failure cached", src.calls.Load())
			}
		})
	}
}

func TestGet_ConcurrentMissesShareOneFetch(t *testing.T) {
	src := &countingSource{rows: requestRows, block: make(chan struct{})}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	const n = 8
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), model.TableRequests)
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.block)
	wg.Wait()

	if src.calls.Load() != 1 {
		t.Fatalf("fetches = %d, want 1", src.calls.Load())
	}
	for i, r := range results {
		if r.Table.Len() != 1 {
			t.Errorf("result %d rows = %d, want 1", i, r.Table.Len())
		}
	}
}

func TestInvalidate_DuringFetchDoesNotStoreStaleResult(t *testing.T) {
	src := &countingSource{rows: requestRows, block: make(chan struct{})}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	done := make(chan Result)
	go func() { done <- c.Get(context.Background(), model.TableRequests) }()

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Invalidate()
	close(src.block)

	res := <-done
	if res.Table.Len() != 1 {
		t.Errorf("in-flight caller rows = %d, want 1", res.Table.Len())
	}
	if !res.Transient {
		t.Error("result that raced Invalidate should be marked transient")
	}
	if _, ok := c.Peek(model.TableRequests); ok {
		t.Error("result of a fetch that raced Invalidate should not be cached")
	}
}

func TestGet_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	src := &countingSource{rows: requestRows, block: make(chan struct{})}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan Result, 1)
	go func() { first <- c.Get(ctx1, model.TableRequests) }()

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	second := make(chan Result, 1)
	go func() { second <- c.Get(context.Background(), model.TableRequests) }()
	time.Sleep(20 * time.Millisecond)

	cancel1()
	r1 := <-first
	if !errors.Is(r1.Err, context.Canceled) || !r1.Transient {
		t.Errorf("canceled caller = %+v, want transient context.Canceled", r1)
	}

	close(src.block)
	r2 := <-second
	if r2.Err != nil || r2.Table.Len() != 1 {
		t.Fatalf("waiting caller err=%v rows=%d, want nil and 1", r2.Err, r2.Table.Len())
	}
	if src.calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", src.calls.Load())
	}
	if res, ok := c.Peek(model.TableRequests); !ok || res.Table.Len() != 1 {
		t.Error("shared fetch should be cached after the first caller left")
	}
}

func TestGet_CanceledSoleCallerStillCaches(t *testing.T) {
	src := &countingSource{rows: requestRows, block: make(chan struct{})}
	c := New(src, Config{Clock: clockwork.NewFakeClock()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- c.Get(ctx, model.TableRequests) }()

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	close(src.block)

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Peek(model.TableRequests); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if res := c.Get(context.Background(), model.TableRequests); res.Err != nil || res.Table.Len() != 1 {
		t.Fatalf("after detached fetch err=%v rows=%d", res.Err, res.Table.Len())
	}
	if src.calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", src.calls.Load())
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	lookups []bool
	kinds   []sheets.Kind
}

func (o *recordingObserver) CacheLookup(_ model.TableName, hit bool) {
	o.mu.Lock()
	o.lookups = append(o.lookups, hit)
	o.mu.Unlock()
}

func (o *recordingObserver) FetchDone(_ model.TableName, kind sheets.Kind, _ time.Duration) {
	o.mu.Lock()
	o.kinds = append(o.kinds, kind)
	o.mu.Unlock()
}

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	c := New(&countingSource{rows: requestRows}, Config{Clock: clockwork.NewFakeClock(), Observer: obs})

	c.Get(context.Background(), model.TableRequests)
	c.Get(context.Background(), model.TableRequests)

	if len(obs.lookups) != 2 || obs.lookups[0] || !obs.lookups[1] {
		t.Errorf("lookups = %v, want [false true]", obs.lookups)
	}
	if len(obs.kinds) != 1 || obs.kinds[0] != sheets.KindOK {
		t.Errorf("fetch kinds = %v, want [ok]", obs.kinds)
	}
}
