package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

type growthStorage struct {
	store  *Store
	logger *common.Logger
}

// NewGrowthStorage creates a GrowthStore backed by BadgerHold.
func NewGrowthStorage(store *Store, logger *common.Logger) interfaces.GrowthStore {
	return &growthStorage{store: store, logger: logger}
}

func (s *growthStorage) Upsert(_ context.Context, record *models.EPSGrowthRecord) error {
	if err := s.store.db.Upsert(record.GrowthKey(), record); err != nil {
		return fmt.Errorf("failed to upsert growth record '%s': %w", record.GrowthKey(), err)
	}
	return nil
}

func (s *growthStorage) UpsertBatch(ctx context.Context, records []*models.EPSGrowthRecord) error {
	for _, r := range records {
		if err := s.Upsert(ctx, r); err != nil {
			return err
		}
	}
	s.logger.Debug().Int("records", len(records)).Msg("Growth records upserted")
	return nil
}

func (s *growthStorage) Count(_ context.Context) (int, error) {
	count, err := s.store.db.Count(&models.EPSGrowthRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count growth records: %w", err)
	}
	return int(count), nil
}

func (s *growthStorage) Ranking(_ context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	var all []models.EPSGrowthRecord
	if err := s.store.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to load growth records: %w", err)
	}

	records := make([]*models.EPSGrowthRecord, 0, len(all))
	for i := range all {
		if query.MarketCode != "" && !strings.EqualFold(all[i].MarketCode, query.MarketCode) {
			continue
		}
		records = append(records, &all[i])
	}

	SortRanking(records, query.SortBy, query.SortOrder)

	return PageRanking(records, query), nil
}

// SortRanking orders growth records by the requested field and direction.
// The default is eps_growth descending; ties break by symbol so ordering is
// stable across runs.
func SortRanking(records []*models.EPSGrowthRecord, sortBy, sortOrder string) {
	desc := !strings.EqualFold(sortOrder, "asc")

	var less func(a, b *models.EPSGrowthRecord) bool
	switch sortBy {
	case models.SortByEPSDiluted:
		less = func(a, b *models.EPSGrowthRecord) bool { return a.EPSDiluted < b.EPSDiluted }
	case models.SortBySymbol:
		less = func(a, b *models.EPSGrowthRecord) bool { return a.Symbol < b.Symbol }
	default: // models.SortByEPSGrowth
		less = func(a, b *models.EPSGrowthRecord) bool { return a.EPSGrowth < b.EPSGrowth }
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if less(a, b) != less(b, a) {
			if desc {
				return less(b, a)
			}
			return less(a, b)
		}
		return a.Symbol < b.Symbol
	})
}

// PageRanking cuts a sorted record slice into the requested page and fills in
// pagination metadata.
func PageRanking(records []*models.EPSGrowthRecord, query models.RankingQuery) *models.RankingResponse {
	total := len(records)

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}

	start := skip
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := records[start:end]
	if page == nil {
		page = []*models.EPSGrowthRecord{}
	}

	totalPages := (total + limit - 1) / limit

	return &models.RankingResponse{
		Data: page,
		Metadata: models.RankingMetadata{
			Total:      total,
			Page:       skip/limit + 1,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}
}
