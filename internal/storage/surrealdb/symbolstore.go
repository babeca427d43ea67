package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

const symbolSelectFields = "symbol, company_name, exchanges, added_at, last_seen_at"

// SymbolStore implements interfaces.SymbolStore using SurrealDB.
type SymbolStore struct {
	store  *Store
	logger *common.Logger
}

// NewSymbolStore creates a new SymbolStore.
func NewSymbolStore(store *Store, logger *common.Logger) *SymbolStore {
	return &SymbolStore{store: store, logger: logger}
}

func (s *SymbolStore) Upsert(ctx context.Context, symbol *models.Symbol) error {
	key := symbol.Key()

	existing, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		symbol.AddedAt = existing.AddedAt
	} else if symbol.AddedAt.IsZero() {
		symbol.AddedAt = time.Now()
	}
	symbol.LastSeenAt = time.Now()

	sql := `UPSERT $rid SET
		symbol = $symbol, company_name = $company_name, exchanges = $exchanges,
		added_at = $added_at, last_seen_at = $last_seen_at`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("symbol", key),
		"symbol":       symbol.Symbol,
		"company_name": symbol.CompanyName,
		"exchanges":    symbol.Exchanges,
		"added_at":     symbol.AddedAt,
		"last_seen_at": symbol.LastSeenAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.store.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert symbol '%s': %w", key, err)
	}
	return nil
}

func (s *SymbolStore) Get(ctx context.Context, key string) (*models.Symbol, error) {
	sql := "SELECT " + symbolSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("symbol", key)}

	results, err := surrealdb.Query[[]models.Symbol](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol '%s': %w", key, err)
	}

	if symbol, ok := firstResult(results); ok {
		return &symbol, nil
	}
	return nil, nil
}

func (s *SymbolStore) ListPage(ctx context.Context, page, pageSize int) ([]*models.Symbol, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	sql := "SELECT " + symbolSelectFields + " FROM symbol ORDER BY symbol ASC LIMIT $limit START $start"
	vars := map[string]any{
		"limit": pageSize,
		"start": (page - 1) * pageSize,
	}

	results, err := surrealdb.Query[[]models.Symbol](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	symbols := allResults(results)
	if symbols == nil {
		symbols = []*models.Symbol{}
	}
	return symbols, nil
}

func (s *SymbolStore) Count(ctx context.Context) (int, error) {
	sql := "SELECT count() AS cnt FROM symbol GROUP ALL"

	type countResult struct {
		Cnt int `json:"cnt"`
	}

	results, err := surrealdb.Query[[]countResult](ctx, s.store.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}

	if row, ok := firstResult(results); ok {
		return row.Cnt, nil
	}
	return 0, nil
}

// Compile-time check
var _ interfaces.SymbolStore = (*SymbolStore)(nil)
