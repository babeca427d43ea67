package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finscan/internal/app"
	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
	"github.com/bobmcallan/finscan/internal/services/growth"
	"github.com/bobmcallan/finscan/internal/services/pipeline"
)

// --- mocks ---

type stubSourceClient struct{}

func (s *stubSourceClient) GetSymbolFinancials(_ context.Context, _ string) (*interfaces.RawFinancials, error) {
	return nil, nil
}

func (s *stubSourceClient) GetExchangeListing(_ context.Context, _ string, page, _ int) ([]*models.Symbol, error) {
	if page > 1 {
		return nil, nil
	}
	return []*models.Symbol{
		{
			Symbol:      "AAPL",
			CompanyName: "Apple Inc.",
			Exchanges:   []models.ExchangeListing{{MarketCode: "US", IsPrimary: true}},
		},
	}, nil
}

type memSymbolStore struct {
	mu      sync.Mutex
	symbols map[string]*models.Symbol
}

func (m *memSymbolStore) Upsert(_ context.Context, symbol *models.Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[symbol.Key()] = symbol
	return nil
}

func (m *memSymbolStore) Get(_ context.Context, key string) (*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.symbols[key], nil
}

func (m *memSymbolStore) ListPage(_ context.Context, page, pageSize int) ([]*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.symbols))
	for k := range m.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := (page - 1) * pageSize
	if start >= len(keys) {
		return []*models.Symbol{}, nil
	}
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := make([]*models.Symbol, 0, end-start)
	for _, k := range keys[start:end] {
		out = append(out, m.symbols[k])
	}
	return out, nil
}

func (m *memSymbolStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.symbols), nil
}

type memFinancialStore struct{}

func (m *memFinancialStore) UpsertPeriod(_ context.Context, _ *models.FinancialPeriod) error {
	return nil
}

func (m *memFinancialStore) GetPeriods(_ context.Context, _ string) ([]*models.FinancialPeriod, error) {
	return nil, nil
}

type memGrowthStore struct {
	mu      sync.Mutex
	records map[string]*models.EPSGrowthRecord
}

func (m *memGrowthStore) Upsert(_ context.Context, record *models.EPSGrowthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.GrowthKey()] = record
	return nil
}

func (m *memGrowthStore) UpsertBatch(ctx context.Context, records []*models.EPSGrowthRecord) error {
	for _, r := range records {
		if err := m.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memGrowthStore) Ranking(_ context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]*models.EPSGrowthRecord, 0, len(m.records))
	for _, r := range m.records {
		data = append(data, r)
	}
	sort.Slice(data, func(i, j int) bool { return data[i].EPSGrowth > data[j].EPSGrowth })
	return &models.RankingResponse{
		Data: data,
		Metadata: models.RankingMetadata{
			Total: len(data),
			Page:  1,
			Limit: query.Limit,
		},
	}, nil
}

func (m *memGrowthStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

type memJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.ProcessingJob
	batches map[string]*models.Batch
}

func (m *memJobStore) SaveJob(_ context.Context, job *models.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobStore) GetJob(_ context.Context, id string) (*models.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		copied := *j
		return &copied, nil
	}
	return nil, nil
}

func (m *memJobStore) GetActiveJob(_ context.Context) (*models.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == models.JobStatusProcessing {
			copied := *j
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memJobStore) ListJobs(_ context.Context, limit int) ([]*models.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ProcessingJob
	for _, j := range m.jobs {
		copied := *j
		out = append(out, &copied)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobStore) SaveBatch(_ context.Context, batch *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *batch
	m.batches[batch.BatchKey()] = &copied
	return nil
}

func (m *memJobStore) GetBatch(_ context.Context, jobID string, number int) (*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := (&models.Batch{JobID: jobID, Number: number}).BatchKey()
	return m.batches[key], nil
}

func (m *memJobStore) ListBatches(_ context.Context, jobID string) ([]*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Batch
	for _, b := range m.batches {
		if b.JobID == jobID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

type memStorage struct {
	symbols    *memSymbolStore
	financials *memFinancialStore
	growth     *memGrowthStore
	jobs       *memJobStore
}

func newMemStorage() *memStorage {
	return &memStorage{
		symbols:    &memSymbolStore{symbols: make(map[string]*models.Symbol)},
		financials: &memFinancialStore{},
		growth:     &memGrowthStore{records: make(map[string]*models.EPSGrowthRecord)},
		jobs:       &memJobStore{jobs: make(map[string]*models.ProcessingJob), batches: make(map[string]*models.Batch)},
	}
}

func (m *memStorage) SymbolStore() interfaces.SymbolStore       { return m.symbols }
func (m *memStorage) FinancialStore() interfaces.FinancialStore { return m.financials }
func (m *memStorage) GrowthStore() interfaces.GrowthStore       { return m.growth }
func (m *memStorage) JobStore() interfaces.JobStore             { return m.jobs }
func (m *memStorage) Close() error                              { return nil }

// --- harness ---

func newTestServer(t *testing.T, storage *memStorage) *Server {
	t.Helper()

	logger := common.NewSilentLogger()
	config := common.NewDefaultConfig()

	pipelineService := pipeline.NewService(&stubSourceClient{}, storage, logger, config.Pipeline)
	t.Cleanup(pipelineService.Shutdown)

	a := &app.App{
		Config:        config,
		Logger:        logger,
		Storage:       storage,
		SourceClient:  &stubSourceClient{},
		Pipeline:      pipelineService,
		GrowthService: growth.NewService(storage, logger),
		StartupTime:   time.Now(),
	}

	return NewServer(a)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodDelete, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestPipelineStartEmptyUniverse(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodPost, "/api/pipeline/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPipelineStartAccepted(t *testing.T) {
	storage := newMemStorage()
	storage.symbols.symbols["AAPL.US"] = &models.Symbol{
		Symbol:      "AAPL",
		CompanyName: "Apple Inc.",
		Exchanges:   []models.ExchangeListing{{MarketCode: "US", IsPrimary: true}},
	}
	s := newTestServer(t, storage)

	rec := doRequest(t, s, http.MethodPost, "/api/pipeline/start", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var job models.ProcessingJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 1, job.TotalSymbols)
}

func TestPipelineJobNotFound(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodGet, "/api/pipeline/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPipelineJobStatus(t *testing.T) {
	storage := newMemStorage()
	storage.jobs.jobs["job-1"] = &models.ProcessingJob{
		ID:           "job-1",
		TotalSymbols: 10,
		Status:       models.JobStatusCompleted,
	}
	s := newTestServer(t, storage)

	rec := doRequest(t, s, http.MethodGet, "/api/pipeline/jobs/job-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var job models.ProcessingJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
}

func TestPipelineBatchesRequiresJobParam(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodGet, "/api/pipeline/batches", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrowthRanking(t *testing.T) {
	storage := newMemStorage()
	storage.growth.records["AAPL#2023Q2"] = &models.EPSGrowthRecord{
		Symbol: "AAPL", CompanyName: "Apple Inc.", MarketCode: "US",
		EPSDiluted: 1.2, EPSGrowth: 20, Year: 2023, Quarter: 2,
		ReportDate: time.Now(),
	}
	s := newTestServer(t, storage)

	rec := doRequest(t, s, http.MethodGet, "/api/growth/ranking?limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.RankingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAPL", resp.Data[0].Symbol)
	assert.Equal(t, 1, resp.Metadata.Total)
}

func TestGrowthRankingRejectsBadSort(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodGet, "/api/growth/ranking?sort_by=market_cap", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymbolSyncRequiresMarket(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodPost, "/api/symbols/sync", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSymbolSync(t *testing.T) {
	storage := newMemStorage()
	s := newTestServer(t, storage)

	rec := doRequest(t, s, http.MethodPost, "/api/symbols/sync", `{"market":"us"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "US", body["market"])
	assert.Equal(t, float64(1), body["symbols"])
}

func TestListSymbols(t *testing.T) {
	storage := newMemStorage()
	storage.symbols.symbols["AAPL.US"] = &models.Symbol{Symbol: "AAPL"}
	storage.symbols.symbols["MSFT.US"] = &models.Symbol{Symbol: "MSFT"}
	s := newTestServer(t, storage)

	rec := doRequest(t, s, http.MethodGet, "/api/symbols?page=1&limit=50", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbols []*models.Symbol `json:"symbols"`
		Total   int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Symbols, 2)
	assert.Equal(t, 2, body.Total)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, newMemStorage())

	rec := doRequest(t, s, http.MethodOptions, "/api/growth/ranking", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
