package growth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

type mockGrowthStore struct {
	interfaces.GrowthStore
	lastQuery models.RankingQuery
	response  *models.RankingResponse
	err       error
}

func (m *mockGrowthStore) Ranking(_ context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

type mockStorage struct {
	interfaces.StorageManager
	growth *mockGrowthStore
}

func (m *mockStorage) GrowthStore() interfaces.GrowthStore { return m.growth }

func newTestService(store *mockGrowthStore) *Service {
	return NewService(&mockStorage{growth: store}, common.NewSilentLogger())
}

func TestGetRankingDefaults(t *testing.T) {
	store := &mockGrowthStore{response: &models.RankingResponse{Data: []*models.EPSGrowthRecord{}}}
	svc := newTestService(store)

	_, err := svc.GetRanking(context.Background(), models.RankingQuery{})
	require.NoError(t, err)

	assert.Equal(t, models.SortByEPSGrowth, store.lastQuery.SortBy)
	assert.Equal(t, "desc", store.lastQuery.SortOrder)
	assert.Equal(t, 20, store.lastQuery.Limit)
	assert.Equal(t, 0, store.lastQuery.Skip)
}

func TestGetRankingCapsLimit(t *testing.T) {
	store := &mockGrowthStore{response: &models.RankingResponse{}}
	svc := newTestService(store)

	_, err := svc.GetRanking(context.Background(), models.RankingQuery{Limit: 5000, Skip: -3})
	require.NoError(t, err)

	assert.Equal(t, 200, store.lastQuery.Limit)
	assert.Equal(t, 0, store.lastQuery.Skip)
}

func TestGetRankingRejectsBadQuery(t *testing.T) {
	svc := newTestService(&mockGrowthStore{response: &models.RankingResponse{}})

	_, err := svc.GetRanking(context.Background(), models.RankingQuery{SortBy: "market_cap"})
	assert.ErrorContains(t, err, "unknown sort field")

	_, err = svc.GetRanking(context.Background(), models.RankingQuery{SortOrder: "sideways"})
	assert.ErrorContains(t, err, "unknown sort order")
}
