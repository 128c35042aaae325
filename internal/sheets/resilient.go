package sheets

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"go.uber.org/zap"
)

// ResilientConfig tunes retries and the circuit breaker around a Source.
type ResilientConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerTimeout  time.Duration // open -> half-open delay
	Logger          *zap.Logger
}

// Resilient retries transport faults with exponential backoff and stops
// calling a failing backend through a circuit breaker. Unavailable and
// empty tables are final answers: they are neither retried nor counted as
// breaker failures.
type Resilient struct {
	next   Source
	cb     *gobreaker.CircuitBreaker[[][]string]
	cfg    ResilientConfig
	logger *zap.Logger
}

// NewResilient wraps next. name labels the breaker in logs.
func NewResilient(next Source, name string, cfg ResilientConfig) *Resilient {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 250 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	logger := logging.OrGlobal(cfg.Logger).With(zap.String("source", name))

	r := &Resilient{next: next, cfg: cfg, logger: logger}
	r.cb = gobreaker.NewCircuitBreaker[[][]string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("source circuit breaker changed state",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// State reports the breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.cb.State()
}

// Fetch implements Source.
func (r *Resilient) Fetch(ctx context.Context, table model.TableName) ([][]string, error) {
	rows, err := r.cb.Execute(func() ([][]string, error) {
		return r.fetchWithRetry(ctx, table)
	})
	if err == nil {
		return rows, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &SourceError{Table: table, Err: err}
	}
	if Classify(err) == KindError {
		var srcErr *SourceError
		if !errors.As(err, &srcErr) {
			return nil, &SourceError{Table: table, Err: err}
		}
	}
	return nil, err
}

func (r *Resilient) fetchWithRetry(ctx context.Context, table model.TableName) ([][]string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.InitialInterval
	bo.MaxInterval = r.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.cfg.MaxRetries), ctx)

	var rows [][]string
	op := func() error {
		out, err := r.next.Fetch(ctx, table)
		if err != nil {
			if !isRetryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		rows = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("fetch failed, retrying",
			zap.String("table", string(table)),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return rows, nil
}

// isRetryable is true for transport faults only.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return Classify(err) == KindError
}
