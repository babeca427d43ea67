package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

// growthSelectFields aliases record fields for struct mapping.
const growthSelectFields = "symbol, company_name, market_code, eps_diluted, previous_eps_diluted, eps_growth, rank, report_date, year, quarter"

// GrowthStore implements interfaces.GrowthStore using SurrealDB.
// Records are keyed on (symbol, year, quarter) via the record ID, so the
// UPSERT write path is idempotent by construction.
type GrowthStore struct {
	store  *Store
	logger *common.Logger
}

// NewGrowthStore creates a new GrowthStore.
func NewGrowthStore(store *Store, logger *common.Logger) *GrowthStore {
	return &GrowthStore{store: store, logger: logger}
}

func (s *GrowthStore) Upsert(ctx context.Context, record *models.EPSGrowthRecord) error {
	sql := `UPSERT $rid SET
		symbol = $symbol, company_name = $company_name, market_code = $market_code,
		eps_diluted = $eps_diluted, previous_eps_diluted = $previous_eps_diluted,
		eps_growth = $eps_growth, rank = $rank, report_date = $report_date,
		year = $year, quarter = $quarter`
	vars := map[string]any{
		"rid":                  surrealmodels.NewRecordID("eps_growth", record.GrowthKey()),
		"symbol":               record.Symbol,
		"company_name":         record.CompanyName,
		"market_code":          record.MarketCode,
		"eps_diluted":          record.EPSDiluted,
		"previous_eps_diluted": record.PreviousEPSDiluted,
		"eps_growth":           record.EPSGrowth,
		"rank":                 record.Rank,
		"report_date":          record.ReportDate,
		"year":                 record.Year,
		"quarter":              record.Quarter,
	}

	if _, err := surrealdb.Query[any](ctx, s.store.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert growth record: %w", err)
	}
	return nil
}

func (s *GrowthStore) UpsertBatch(ctx context.Context, records []*models.EPSGrowthRecord) error {
	for _, r := range records {
		if err := s.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *GrowthStore) Count(ctx context.Context) (int, error) {
	sql := "SELECT count() AS cnt FROM eps_growth GROUP ALL"

	type countResult struct {
		Cnt int `json:"cnt"`
	}

	results, err := surrealdb.Query[[]countResult](ctx, s.store.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count growth records: %w", err)
	}

	if row, ok := firstResult(results); ok {
		return row.Cnt, nil
	}
	return 0, nil
}

func (s *GrowthStore) Ranking(ctx context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}

	sortField := "eps_growth"
	switch query.SortBy {
	case models.SortByEPSDiluted:
		sortField = "eps_diluted"
	case models.SortBySymbol:
		sortField = "symbol"
	}
	direction := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		direction = "ASC"
	}

	where := ""
	vars := map[string]any{"limit": limit, "start": skip}
	if query.MarketCode != "" {
		where = "WHERE market_code = $market"
		vars["market"] = strings.ToUpper(query.MarketCode)
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM eps_growth %s ORDER BY %s %s, symbol ASC LIMIT $limit START $start",
		growthSelectFields, where, sortField, direction,
	)

	results, err := surrealdb.Query[[]models.EPSGrowthRecord](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query growth ranking: %w", err)
	}
	data := allResults(results)
	if data == nil {
		data = []*models.EPSGrowthRecord{}
	}

	countSQL := fmt.Sprintf("SELECT count() AS cnt FROM eps_growth %s GROUP ALL", where)

	type countResult struct {
		Cnt int `json:"cnt"`
	}
	countRes, err := surrealdb.Query[[]countResult](ctx, s.store.db, countSQL, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to count growth ranking: %w", err)
	}
	total := 0
	if row, ok := firstResult(countRes); ok {
		total = row.Cnt
	}

	return &models.RankingResponse{
		Data: data,
		Metadata: models.RankingMetadata{
			Total:      total,
			Page:       skip/limit + 1,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// Compile-time check
var _ interfaces.GrowthStore = (*GrowthStore)(nil)
