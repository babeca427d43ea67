// Package surrealdb provides SurrealDB-backed store implementations for the
// server storage driver.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/finscan/internal/common"
)

// Store wraps a SurrealDB connection shared by the store implementations in
// this package.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewStore connects to SurrealDB, signs in, selects the namespace/database,
// and defines the tables used by finscan.
func NewStore(logger *common.Logger, cfg common.SurrealConfig) (*Store, error) {
	ctx := context.Background()

	db, err := surrealdb.New(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying non-existent tables.
	tables := []string{"symbol", "financial_period", "eps_growth", "processing_job", "batch"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	logger.Info().
		Str("url", cfg.URL).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB store connected")

	return &Store{db: db, logger: logger}, nil
}

// DB returns the underlying SurrealDB connection.
func (s *Store) DB() *surrealdb.DB {
	return s.db
}

// Close closes the SurrealDB connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

// firstResult extracts the first row from a surrealdb.Query result set.
func firstResult[T any](results *[]surrealdb.QueryResult[[]T]) (T, bool) {
	var zero T
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return zero, false
	}
	return (*results)[0].Result[0], true
}

// allResults extracts all rows from a surrealdb.Query result set as pointers.
func allResults[T any](results *[]surrealdb.QueryResult[[]T]) []*T {
	var out []*T
	if results == nil || len(*results) == 0 {
		return out
	}
	for i := range (*results)[0].Result {
		out = append(out, &(*results)[0].Result[i])
	}
	return out
}
