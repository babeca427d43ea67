package growth

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

// Service is the read path over computed growth rankings.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new growth service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

// GetRanking validates the query, applies defaults, and delegates to the
// growth store.
func (s *Service) GetRanking(ctx context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	if query.SortBy == "" {
		query.SortBy = models.SortByEPSGrowth
	}
	switch query.SortBy {
	case models.SortByEPSGrowth, models.SortByEPSDiluted, models.SortBySymbol:
	default:
		return nil, fmt.Errorf("unknown sort field '%s'", query.SortBy)
	}

	if query.SortOrder == "" {
		query.SortOrder = "desc"
	}
	if !strings.EqualFold(query.SortOrder, "asc") && !strings.EqualFold(query.SortOrder, "desc") {
		return nil, fmt.Errorf("unknown sort order '%s'", query.SortOrder)
	}

	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	response, err := s.storage.GrowthStore().Ranking(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get growth ranking: %w", err)
	}

	s.logger.Debug().
		Str("market", query.MarketCode).
		Str("sort_by", query.SortBy).
		Int("returned", len(response.Data)).
		Int("total", response.Metadata.Total).
		Msg("Growth ranking served")

	return response, nil
}

// Compile-time check
var _ interfaces.GrowthService = (*Service)(nil)
