// Package cache memoizes typed tables for a fixed TTL.
//
// Every Get returns a usable table: a failed fetch is absorbed into an empty
// table carrying the schema, with the classified error alongside. Failures
// are cached like successes so an unconfigured source is not hit on every
// render; Invalidate clears both.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/sheetboard/internal/loader"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/sheets"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Result is one cached table load.
type Result struct {
	Table     model.TypedTable
	Err       error // nil, or a sheets error classified by sheets.Classify
	FetchedAt time.Time
	Transient bool // not stored: the caller gave up or the load raced Invalidate
}

// Kind classifies Err.
func (r Result) Kind() sheets.Kind { return sheets.Classify(r.Err) }

// Stats are cumulative counters since construction.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Fetches    int64 `json:"fetches"`
	Generation int64 `json:"generation"`
	Entries    int   `json:"entries"`
}

// Observer receives fetch and lookup events. internal/metrics implements it.
type Observer interface {
	CacheLookup(table model.TableName, hit bool)
	FetchDone(table model.TableName, kind sheets.Kind, elapsed time.Duration)
}

// Config holds cache dependencies. Zero values get defaults.
type Config struct {
	TTL          time.Duration
	FetchTimeout time.Duration // per shared fetch; 0 means unbounded
	Clock        clockwork.Clock
	Loader       *loader.Loader
	Observer     Observer
	Logger       *zap.Logger
}

type entry struct {
	result   Result
	storedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	src    sheets.Source
	ttl    time.Duration
	fetchT time.Duration
	clock  clockwork.Clock
	loader *loader.Loader
	obs    Observer
	logger *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[model.TableName]entry
	gen     int64
	stats   Stats
}

// New creates a cache in front of src.
func New(src sheets.Source, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = model.DefaultCacheTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Loader == nil {
		cfg.Loader = loader.New()
	}
	return &Cache{
		src:     src,
		ttl:     cfg.TTL,
		fetchT:  cfg.FetchTimeout,
		clock:   cfg.Clock,
		loader:  cfg.Loader,
		obs:     cfg.Observer,
		logger:  logging.OrGlobal(cfg.Logger),
		entries: make(map[model.TableName]entry),
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the table, fetching it when absent or older than the TTL.
// Concurrent misses for the same table share one fetch.
func (c *Cache) Get(ctx context.Context, table model.TableName) Result {
	c.mu.Lock()
	if e, ok := c.entries[table]; ok && c.clock.Since(e.storedAt) < c.ttl {
		c.stats.Hits++
		c.mu.Unlock()
		c.observeLookup(table, true)
		return e.result
	}
	c.stats.Misses++
	gen := c.gen
	c.mu.Unlock()
	c.observeLookup(table, false)

	key := string(table) + "#" + strconv.FormatInt(gen, 10)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Shared by every waiter, so detached from the caller that started it.
		res := c.fetch(context.WithoutCancel(ctx), table)

		c.mu.Lock()
		defer c.mu.Unlock()
		// A load that raced an Invalidate is returned but not remembered.
		if c.gen == gen {
			c.entries[table] = entry{result: res, storedAt: c.clock.Now()}
		} else {
			res.Transient = true
		}
		return res, nil
	})

	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{
			Table:     c.loader.Empty(table),
			Err:       &sheets.SourceError{Table: table, Err: ctx.Err()},
			FetchedAt: c.clock.Now(),
			Transient: true,
		}
	}
}

// Peek returns the stored result without fetching, fresh or not.
func (c *Cache) Peek(table model.TableName) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[table]
	return e.result, ok
}

// Invalidate drops every entry. In-flight fetches finish but are not stored.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[model.TableName]entry)
	c.gen++
	c.mu.Unlock()
	c.logger.Info("cache invalidated")
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Generation = c.gen
	s.Entries = len(c.entries)
	return s
}

func (c *Cache) fetch(ctx context.Context, table model.TableName) Result {
	if c.fetchT > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchT)
		defer cancel()
	}

	c.mu.Lock()
	c.stats.Fetches++
	c.mu.Unlock()

	start := c.clock.Now()
	rows, err := c.src.Fetch(ctx, table)
	elapsed := c.clock.Since(start)
	fetchedAt := c.clock.Now()

	if err == nil {
		tbl, lerr := c.loader.Load(table, rows)
		if lerr != nil {
			err = &sheets.SourceError{Table: table, Err: lerr}
		} else {
			c.observeFetch(table, sheets.KindOK, elapsed)
			c.logger.Debug("table loaded",
				zap.String("table", string(table)),
				zap.Int("rows", tbl.Len()),
				zap.Duration("elapsed", elapsed),
			)
			return Result{Table: tbl, FetchedAt: fetchedAt}
		}
	}

	kind := sheets.Classify(err)
	c.observeFetch(table, kind, elapsed)
	switch kind {
	case sheets.KindEmpty:
		c.logger.Debug("table empty", zap.String("table", string(table)))
	case sheets.KindUnavailable:
		c.logger.Warn("table unavailable", zap.String("table", string(table)), zap.Error(err))
	default:
		c.logger.Error("table fetch failed", zap.String("table", string(table)), zap.Error(err))
	}
	return Result{Table: c.loader.Empty(table), Err: err, FetchedAt: fetchedAt}
}

func (c *Cache) observeLookup(table model.TableName, hit bool) {
	if c.obs != nil {
		c.obs.CacheLookup(table, hit)
	}
}

func (c *Cache) observeFetch(table model.TableName, kind sheets.Kind, elapsed time.Duration) {
	if c.obs != nil {
		c.obs.FetchDone(table, kind, elapsed)
	}
}
