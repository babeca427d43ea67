package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

// --- mocks ---

// mockSourceClient serves canned financial payloads and records fetch order.
type mockSourceClient struct {
	mu           sync.Mutex
	fetched      []string
	inFlight     int
	maxInFlight  int
	financialsFn func(ctx context.Context, symbol string) (*interfaces.RawFinancials, error)
	listingFn    func(ctx context.Context, marketCode string, page, pageSize int) ([]*models.Symbol, error)
	gate         chan struct{} // optional: fetch blocks until the gate closes
}

func (m *mockSourceClient) GetSymbolFinancials(ctx context.Context, symbol string) (*interfaces.RawFinancials, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, symbol)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.financialsFn != nil {
		return m.financialsFn(ctx, symbol)
	}
	return defaultRawFinancials(), nil
}

func (m *mockSourceClient) GetExchangeListing(ctx context.Context, marketCode string, page, pageSize int) ([]*models.Symbol, error) {
	if m.listingFn != nil {
		return m.listingFn(ctx, marketCode, page, pageSize)
	}
	return nil, nil
}

func (m *mockSourceClient) fetchedSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.fetched))
	copy(out, m.fetched)
	return out
}

// defaultRawFinancials is a two-quarter payload that normalizes cleanly.
func defaultRawFinancials() *interfaces.RawFinancials {
	return &interfaces.RawFinancials{
		ColumnMap: map[string]int{
			"fiscalYear":    0,
			"fiscalQuarter": 1,
			"reportDate":    2,
			"epsDiluted":    3,
		},
		Rows: [][]interface{}{
			{2023.0, 2.0, "2023-05-15", 1.2},
			{2023.0, 1.0, "2023-02-15", 1.0},
		},
	}
}

type mockSymbolStore struct {
	mu      sync.Mutex
	symbols map[string]*models.Symbol
}

func newMockSymbolStore() *mockSymbolStore {
	return &mockSymbolStore{symbols: make(map[string]*models.Symbol)}
}

func (m *mockSymbolStore) Upsert(_ context.Context, symbol *models.Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *symbol
	m.symbols[symbol.Key()] = &copied
	return nil
}

func (m *mockSymbolStore) Get(_ context.Context, key string) (*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.symbols[key]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *mockSymbolStore) ListPage(_ context.Context, page, pageSize int) ([]*models.Symbol, error) {
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
		copied := *m.symbols[k]
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockSymbolStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.symbols), nil
}

type mockFinancialStore struct {
	mu      sync.Mutex
	periods map[string]*models.FinancialPeriod
	saveErr error
}

func newMockFinancialStore() *mockFinancialStore {
	return &mockFinancialStore{periods: make(map[string]*models.FinancialPeriod)}
}

func (m *mockFinancialStore) UpsertPeriod(_ context.Context, period *models.FinancialPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.periods[period.PeriodKey()] = period
	return nil
}

func (m *mockFinancialStore) GetPeriods(_ context.Context, symbol string) ([]*models.FinancialPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FinancialPeriod
	for _, p := range m.periods {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockGrowthStore struct {
	mu        sync.Mutex
	records   map[string]*models.EPSGrowthRecord
	upsertErr error
}

func newMockGrowthStore() *mockGrowthStore {
	return &mockGrowthStore{records: make(map[string]*models.EPSGrowthRecord)}
}

func (m *mockGrowthStore) Upsert(_ context.Context, record *models.EPSGrowthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.records[record.GrowthKey()] = record
	return nil
}

func (m *mockGrowthStore) UpsertBatch(ctx context.Context, records []*models.EPSGrowthRecord) error {
	for _, r := range records {
		if err := m.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGrowthStore) Ranking(_ context.Context, query models.RankingQuery) (*models.RankingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]*models.EPSGrowthRecord, 0, len(m.records))
	for _, r := range m.records {
		data = append(data, r)
	}
	sort.Slice(data, func(i, j int) bool {
		if data[i].EPSGrowth != data[j].EPSGrowth {
			return data[i].EPSGrowth > data[j].EPSGrowth
		}
		return data[i].Symbol < data[j].Symbol
	})
	return &models.RankingResponse{Data: data, Metadata: models.RankingMetadata{Total: len(data)}}, nil
}

func (m *mockGrowthStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

type mockJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.ProcessingJob
	batches map[string]*models.Batch
	saveErr error
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{
		jobs:    make(map[string]*models.ProcessingJob),
		batches: make(map[string]*models.Batch),
	}
}

func (m *mockJobStore) SaveJob(_ context.Context, job *models.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockJobStore) GetJob(_ context.Context, id string) (*models.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		copied := *j
		return &copied, nil
	}
	return nil, nil
}

func (m *mockJobStore) GetActiveJob(_ context.Context) (*models.ProcessingJob, error) {
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

func (m *mockJobStore) ListJobs(_ context.Context, limit int) ([]*models.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ProcessingJob
	for _, j := range m.jobs {
		copied := *j
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockJobStore) SaveBatch(_ context.Context, batch *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *batch
	m.batches[batch.BatchKey()] = &copied
	return nil
}

func (m *mockJobStore) GetBatch(_ context.Context, jobID string, number int) (*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := (&models.Batch{JobID: jobID, Number: number}).BatchKey()
	if b, ok := m.batches[key]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *mockJobStore) ListBatches(_ context.Context, jobID string) ([]*models.Batch, error) {
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

type mockStorageManager struct {
	symbols    *mockSymbolStore
	financials *mockFinancialStore
	growth     *mockGrowthStore
	jobs       *mockJobStore
}

func newMockStorageManager() *mockStorageManager {
	return &mockStorageManager{
		symbols:    newMockSymbolStore(),
		financials: newMockFinancialStore(),
		growth:     newMockGrowthStore(),
		jobs:       newMockJobStore(),
	}
}

func (m *mockStorageManager) SymbolStore() interfaces.SymbolStore       { return m.symbols }
func (m *mockStorageManager) FinancialStore() interfaces.FinancialStore { return m.financials }
func (m *mockStorageManager) GrowthStore() interfaces.GrowthStore       { return m.growth }
func (m *mockStorageManager) JobStore() interfaces.JobStore             { return m.jobs }
func (m *mockStorageManager) Close() error                              { return nil }

// seedSymbols registers n US-market symbols named SYM000..SYM(n-1).
func seedSymbols(store *mockSymbolStore, n int) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("SYM%03d", i)
		store.symbols[name+".US"] = &models.Symbol{
			Symbol:      name,
			CompanyName: name + " Corp",
			Exchanges:   []models.ExchangeListing{{MarketCode: "US", IsPrimary: true}},
		}
	}
}
