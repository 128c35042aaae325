// Package duckdb mirrors the latest dashboard snapshot into an in-memory
// DuckDB database so it can be explored with read-only SQL.
package duckdb

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/sheetboard/internal/duckdb/migrate"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"go.uber.org/zap"
)

const defaultQueryTimeout = 30 * time.Second

// Store owns the mirror database. Nothing is written to disk.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	logger       *zap.Logger
	QueryTimeout time.Duration
}

var _ model.SchemaQuerier = (*Store)(nil)

// NewStore opens an in-memory database and creates the snapshot tables.
// queryTimeout defaults to 30s.
func NewStore(queryTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	logger = logging.OrGlobal(logger)

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if err := migrate.NewRunner(db, logger).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Store{
		db:           db,
		logger:       logger,
		QueryTimeout: queryTimeout,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queryCtx returns a context bounded by the store's query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}
