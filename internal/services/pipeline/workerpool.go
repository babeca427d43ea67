package pipeline

import (
	"context"
	"sync"

	"github.com/bobmcallan/finscan/internal/clients/stockdata"
	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
	"github.com/bobmcallan/finscan/internal/services/growth"
)

// WorkerPool fans one batch's symbols out to bounded concurrent fetch workers.
// Symbols are admitted in chunks; each chunk drains completely before the next
// is dispatched, so a stuck upstream shows up as a stalled chunk rather than
// unbounded in-flight work.
type WorkerPool struct {
	client     interfaces.FinancialSourceClient
	financials interfaces.FinancialStore
	normalizer *stockdata.Normalizer
	logger     *common.Logger

	maxConcurrent int
	chunkSize     int
	retryConfig   common.RetryConfig
}

// NewWorkerPool creates a worker pool using the pipeline tuning config.
func NewWorkerPool(
	client interfaces.FinancialSourceClient,
	financials interfaces.FinancialStore,
	logger *common.Logger,
	config common.PipelineConfig,
) *WorkerPool {
	return &WorkerPool{
		client:        client,
		financials:    financials,
		normalizer:    stockdata.NewNormalizer(logger),
		logger:        logger,
		maxConcurrent: config.GetMaxConcurrent(),
		chunkSize:     config.GetChunkSize(),
		retryConfig: common.RetryConfig{
			MaxRetries:   config.GetMaxRetries(),
			InitialDelay: config.GetInitialDelay(),
			MaxDelay:     config.GetMaxDelay(),
			Factor:       2,
		},
	}
}

// BatchResult summarizes one batch run. Failed symbols are isolated: their
// errors are logged and counted but never abort the surviving work.
type BatchResult struct {
	Records   []*models.EPSGrowthRecord
	Succeeded int
	Failed    int
	NoData    int
}

// ProcessBatch fetches, normalizes, and persists financials for every symbol
// in the batch, returning the validated growth records. Duplicate
// (symbol, market) pairs are processed once. Returns an error only when the
// context is cancelled or times out; per-symbol failures are absorbed into
// the result counts.
func (p *WorkerPool) ProcessBatch(ctx context.Context, symbols []*models.Symbol) (*BatchResult, error) {
	unique := dedupeSymbols(symbols)

	result := &BatchResult{}
	var mu sync.Mutex

	sem := make(chan struct{}, p.maxConcurrent)

	for start := 0; start < len(unique); start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkSize
		if end > len(unique) {
			end = len(unique)
		}

		var wg sync.WaitGroup
		for _, symbol := range unique[start:end] {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return nil, ctx.Err()
			}

			wg.Add(1)
			go func(symbol *models.Symbol) {
				defer wg.Done()
				defer func() { <-sem }()

				records, err := p.processSymbol(ctx, symbol)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					result.Failed++
					p.logger.Warn().
						Str("symbol", symbol.Key()).
						Err(err).
						Msg("Symbol processing failed, continuing batch")
				case records == nil:
					result.NoData++
				default:
					result.Succeeded++
					result.Records = append(result.Records, records...)
				}
			}(symbol)
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// processSymbol runs the fetch-normalize-persist-derive path for one symbol.
// Returns (nil, nil) when the source has no data for it.
func (p *WorkerPool) processSymbol(ctx context.Context, symbol *models.Symbol) ([]*models.EPSGrowthRecord, error) {
	var raw *interfaces.RawFinancials
	err := common.Retry(ctx, p.logger, p.retryConfig, "fetch:"+symbol.Key(), func(ctx context.Context) error {
		var fetchErr error
		raw, fetchErr = p.client.GetSymbolFinancials(ctx, symbol.Symbol)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	periods := p.normalizer.Normalize(symbol.Symbol, raw)
	if len(periods) == 0 {
		return nil, nil
	}

	for _, period := range periods {
		if err := p.financials.UpsertPeriod(ctx, period); err != nil {
			return nil, err
		}
	}

	// Incomplete derived records are dropped here so only fully-formed rows
	// ever reach the growth store.
	records := growth.BuildRecords(symbol, periods)
	valid := records[:0]
	for _, r := range records {
		if r.IsComplete() {
			valid = append(valid, r)
		} else {
			p.logger.Debug().
				Str("symbol", r.Symbol).
				Int("year", r.Year).
				Int("quarter", r.Quarter).
				Msg("Dropping incomplete growth record")
		}
	}
	return valid, nil
}

// dedupeSymbols drops repeated (symbol, market) pairs, keeping first
// occurrence order.
func dedupeSymbols(symbols []*models.Symbol) []*models.Symbol {
	seen := make(map[string]bool, len(symbols))
	unique := make([]*models.Symbol, 0, len(symbols))
	for _, s := range symbols {
		key := s.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}
	return unique
}
