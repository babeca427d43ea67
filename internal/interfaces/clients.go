// Package interfaces defines the contracts between finscan's clients,
// services, and storage layers.
package interfaces

import (
	"context"

	"github.com/bobmcallan/finscan/internal/models"
)

// FinancialSourceClient fetches listings and financial statements from the
// upstream data source.
type FinancialSourceClient interface {
	// GetSymbolFinancials fetches raw quarterly statement data for one symbol.
	// Returns (nil, nil) when the source has no data for the symbol; an error
	// is returned only for transport-level failures.
	GetSymbolFinancials(ctx context.Context, symbol string) (*RawFinancials, error)

	// GetExchangeListing fetches one page of an exchange's stock listing.
	// Pages are 1-based; a page shorter than pageSize signals the end.
	GetExchangeListing(ctx context.Context, marketCode string, page, pageSize int) ([]*models.Symbol, error)
}

// RawFinancials is the opaque statement payload returned by the source: a
// column map of field name to index into the per-period value rows.
type RawFinancials struct {
	ColumnMap map[string]int  `json:"column_map"`
	Rows      [][]interface{} `json:"rows"`
}
