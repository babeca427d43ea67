package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

type symbolStorage struct {
	store  *Store
	logger *common.Logger
}

// NewSymbolStorage creates a SymbolStore backed by BadgerHold.
func NewSymbolStorage(store *Store, logger *common.Logger) interfaces.SymbolStore {
	return &symbolStorage{store: store, logger: logger}
}

func (s *symbolStorage) Upsert(_ context.Context, symbol *models.Symbol) error {
	key := symbol.Key()

	var existing models.Symbol
	err := s.store.db.Get(key, &existing)
	if err == nil {
		symbol.AddedAt = existing.AddedAt
	} else if symbol.AddedAt.IsZero() {
		symbol.AddedAt = time.Now()
	}
	symbol.LastSeenAt = time.Now()

	if err := s.store.db.Upsert(key, symbol); err != nil {
		return fmt.Errorf("failed to upsert symbol '%s': %w", key, err)
	}
	return nil
}

func (s *symbolStorage) Get(_ context.Context, key string) (*models.Symbol, error) {
	var symbol models.Symbol
	err := s.store.db.Get(key, &symbol)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get symbol '%s': %w", key, err)
	}
	return &symbol, nil
}

func (s *symbolStorage) ListPage(_ context.Context, page, pageSize int) ([]*models.Symbol, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	var all []models.Symbol
	if err := s.store.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	// Stable symbol order so pagination is deterministic across calls.
	sort.Slice(all, func(i, j int) bool {
		return all[i].Key() < all[j].Key()
	})

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*models.Symbol{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	result := make([]*models.Symbol, 0, end-start)
	for i := start; i < end; i++ {
		sym := all[i]
		result = append(result, &sym)
	}
	return result, nil
}

func (s *symbolStorage) Count(_ context.Context) (int, error) {
	count, err := s.store.db.Count(&models.Symbol{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return int(count), nil
}
