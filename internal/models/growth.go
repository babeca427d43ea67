package models

import "time"

// EPSGrowthRecord is the derived growth entity, one per (symbol, year, quarter).
// EPSGrowth is always defined once a record exists — sentinel rules replace
// divide-by-zero and missing-baseline cases at computation time.
type EPSGrowthRecord struct {
	Symbol             string    `json:"symbol"`
	CompanyName        string    `json:"company_name"`
	MarketCode         string    `json:"market_code"`
	EPSDiluted         float64   `json:"eps_diluted"`
	PreviousEPSDiluted *float64  `json:"previous_eps_diluted,omitempty"`
	EPSGrowth          float64   `json:"eps_growth"`
	Rank               int       `json:"rank,omitempty"`
	ReportDate         time.Time `json:"report_date"`
	Year               int       `json:"year"`
	Quarter            int       `json:"quarter"`
}

// GrowthKey returns the upsert key enforcing one record per
// (symbol, year, quarter) — re-running the pipeline is idempotent.
func (r *EPSGrowthRecord) GrowthKey() string {
	return PeriodKey(r.Symbol, r.Year, r.Quarter)
}

// IsComplete reports whether every field required by the batch validation gate
// is present and correctly typed. Incomplete records are dropped before the
// batch result is committed.
func (r *EPSGrowthRecord) IsComplete() bool {
	return r.Symbol != "" &&
		r.CompanyName != "" &&
		r.MarketCode != "" &&
		!r.ReportDate.IsZero() &&
		r.Quarter >= 1 && r.Quarter <= 4 &&
		r.Year >= 1900 && r.Year < 2100
}

// Ranking sort fields accepted by the growth read path.
const (
	SortByEPSGrowth  = "eps_growth"
	SortByEPSDiluted = "eps_diluted"
	SortBySymbol     = "symbol"
)

// RankingQuery selects a page of the EPS growth ranking.
type RankingQuery struct {
	MarketCode string `json:"market_code,omitempty"` // empty = all markets
	SortBy     string `json:"sort_by"`               // default "eps_growth"
	SortOrder  string `json:"sort_order"`            // "asc" | "desc", default "desc"
	Skip       int    `json:"skip"`
	Limit      int    `json:"limit"`
}

// RankingMetadata describes the full result set a ranking page was cut from.
type RankingMetadata struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// RankingResponse is a page of growth records plus pagination metadata.
type RankingResponse struct {
	Data     []*EPSGrowthRecord `json:"data"`
	Metadata RankingMetadata    `json:"metadata"`
}
