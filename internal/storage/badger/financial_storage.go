package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

type financialStorage struct {
	store  *Store
	logger *common.Logger
}

// NewFinancialStorage creates a FinancialStore backed by BadgerHold.
// Upsert on the composite period key makes concurrent writes of the same
// period converge instead of conflicting.
func NewFinancialStorage(store *Store, logger *common.Logger) interfaces.FinancialStore {
	return &financialStorage{store: store, logger: logger}
}

func (s *financialStorage) UpsertPeriod(_ context.Context, period *models.FinancialPeriod) error {
	if !period.HasFiscalIdentity() {
		return fmt.Errorf("refusing to persist period without fiscal identity for '%s'", period.Symbol)
	}

	if err := s.store.db.Upsert(period.PeriodKey(), period); err != nil {
		return fmt.Errorf("failed to upsert financial period '%s': %w", period.PeriodKey(), err)
	}
	return nil
}

func (s *financialStorage) GetPeriods(_ context.Context, symbol string) ([]*models.FinancialPeriod, error) {
	var periods []models.FinancialPeriod
	err := s.store.db.Find(&periods, badgerhold.Where("Symbol").Eq(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get periods for '%s': %w", symbol, err)
	}

	sort.Slice(periods, func(i, j int) bool {
		if periods[i].FiscalYear != periods[j].FiscalYear {
			return periods[i].FiscalYear > periods[j].FiscalYear
		}
		return periods[i].FiscalQuarter > periods[j].FiscalQuarter
	})

	result := make([]*models.FinancialPeriod, len(periods))
	for i := range periods {
		result[i] = &periods[i]
	}
	return result, nil
}
