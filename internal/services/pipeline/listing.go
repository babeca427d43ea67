package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/models"
)

// listingPageSize is the exchange listing fetch page size.
const listingPageSize = 100

// SyncListing refreshes the symbol universe for one market, walking the
// source's listing pages until a short page signals the end. Existing symbols
// gain the market as an additional listing; new symbols are registered.
// Returns the number of symbols seen for the market.
func (s *Service) SyncListing(ctx context.Context, marketCode string) (int, error) {
	marketCode = strings.ToUpper(strings.TrimSpace(marketCode))
	if marketCode == "" {
		return 0, fmt.Errorf("market code is required")
	}

	retryConfig := common.RetryConfig{
		MaxRetries:   s.config.GetMaxRetries(),
		InitialDelay: s.config.GetInitialDelay(),
		MaxDelay:     s.config.GetMaxDelay(),
		Factor:       2,
	}

	total := 0
	for page := 1; ; page++ {
		var symbols []*models.Symbol
		label := fmt.Sprintf("listing:%s:%d", marketCode, page)
		err := common.Retry(ctx, s.logger, retryConfig, label, func(ctx context.Context) error {
			var fetchErr error
			symbols, fetchErr = s.client.GetExchangeListing(ctx, marketCode, page, listingPageSize)
			return fetchErr
		})
		if err != nil {
			return total, fmt.Errorf("failed to fetch listing page %d for '%s': %w", page, marketCode, err)
		}

		for _, symbol := range symbols {
			if err := s.upsertListing(ctx, symbol, marketCode); err != nil {
				return total, err
			}
			total++
		}

		if len(symbols) < listingPageSize {
			break
		}
	}

	s.logger.Info().
		Str("market", marketCode).
		Int("symbols", total).
		Msg("Exchange listing synced")

	return total, nil
}

// upsertListing merges a fetched symbol into the universe, preserving
// listings the symbol already carries on other markets.
func (s *Service) upsertListing(ctx context.Context, fetched *models.Symbol, marketCode string) error {
	store := s.storage.SymbolStore()

	existing, err := store.Get(ctx, models.SymbolKey(fetched.Symbol, fetched.PrimaryMarket()))
	if err != nil {
		return fmt.Errorf("failed to look up symbol '%s': %w", fetched.Symbol, err)
	}

	if existing != nil {
		existing.CompanyName = fetched.CompanyName
		existing.Exchanges = mergeListings(existing.Exchanges, fetched.Exchanges)
		fetched = existing
	}

	if err := store.Upsert(ctx, fetched); err != nil {
		return fmt.Errorf("failed to upsert symbol '%s': %w", fetched.Symbol, err)
	}
	return nil
}

// mergeListings unions exchange listings by market code. An incoming primary
// flag wins over a stored non-primary one.
func mergeListings(existing, incoming []models.ExchangeListing) []models.ExchangeListing {
	merged := make([]models.ExchangeListing, len(existing))
	copy(merged, existing)

	for _, in := range incoming {
		found := false
		for i, have := range merged {
			if strings.EqualFold(have.MarketCode, in.MarketCode) {
				if in.IsPrimary {
					merged[i].IsPrimary = true
				}
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, in)
		}
	}
	return merged
}
