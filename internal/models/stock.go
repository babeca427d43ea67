package models

import "time"

// ExchangeListing records a single market listing for a symbol.
// Cross-listed securities carry one entry per market.
type ExchangeListing struct {
	MarketCode string `json:"market_code"`
	IsPrimary  bool   `json:"is_primary"`
}

// Symbol represents a stock in the symbol universe.
// Identity throughout the system is (symbol, market code) — tickers are not
// globally unique across exchanges.
type Symbol struct {
	Symbol      string            `json:"symbol"`
	CompanyName string            `json:"company_name"`
	Exchanges   []ExchangeListing `json:"exchanges"`

	AddedAt    time.Time `json:"added_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PrimaryMarket returns the primary market code, falling back to the first
// listing when none is flagged primary. Returns "" for an unlisted symbol.
func (s *Symbol) PrimaryMarket() string {
	for _, e := range s.Exchanges {
		if e.IsPrimary {
			return e.MarketCode
		}
	}
	if len(s.Exchanges) > 0 {
		return s.Exchanges[0].MarketCode
	}
	return ""
}

// Key returns the composite identity key "SYMBOL.MARKET" used for storage
// and per-run deduplication.
func (s *Symbol) Key() string {
	return SymbolKey(s.Symbol, s.PrimaryMarket())
}

// SymbolKey builds the composite identity key for a symbol and market code.
func SymbolKey(symbol, marketCode string) string {
	if marketCode == "" {
		return symbol
	}
	return symbol + "." + marketCode
}

// FinancialPeriod is one reporting period for a symbol, keyed by
// (symbol, fiscal year, fiscal quarter). Metric fields are pointers so that
// "not reported" is distinguishable from zero.
type FinancialPeriod struct {
	Symbol        string    `json:"symbol"`
	FiscalYear    int       `json:"fiscal_year"`
	FiscalQuarter int       `json:"fiscal_quarter"`
	ReportDate    time.Time `json:"report_date"`

	Revenue                *float64 `json:"revenue,omitempty"`
	RevenueGrowth          *float64 `json:"revenue_growth,omitempty"`
	OperatingIncome        *float64 `json:"operating_income,omitempty"`
	InterestExpense        *float64 `json:"interest_expense,omitempty"`
	NetIncome              *float64 `json:"net_income,omitempty"`
	EPSBasic               *float64 `json:"eps_basic,omitempty"`
	EPSDiluted             *float64 `json:"eps_diluted,omitempty"`
	FreeCashFlow           *float64 `json:"free_cash_flow,omitempty"`
	ProfitMargin           *float64 `json:"profit_margin,omitempty"`
	TotalOperatingExpenses *float64 `json:"total_operating_expenses,omitempty"`
}

// HasFiscalIdentity reports whether both fiscal identifiers are present.
// Records without a full period identity are never persisted.
func (p *FinancialPeriod) HasFiscalIdentity() bool {
	return p.FiscalQuarter >= 1 && p.FiscalQuarter <= 4 &&
		p.FiscalYear >= 1900 && p.FiscalYear < 2100
}

// HasMetrics reports whether at least one core financial metric is populated.
func (p *FinancialPeriod) HasMetrics() bool {
	return p.Revenue != nil || p.OperatingIncome != nil || p.NetIncome != nil ||
		p.EPSBasic != nil || p.EPSDiluted != nil
}

// PeriodKey returns the storage key enforcing one record per
// (symbol, fiscal year, fiscal quarter).
func (p *FinancialPeriod) PeriodKey() string {
	return PeriodKey(p.Symbol, p.FiscalYear, p.FiscalQuarter)
}

// PeriodKey builds the composite period key used by the financial store.
func PeriodKey(symbol string, year, quarter int) string {
	return symbol + "#" + itoa4(year) + "Q" + string(rune('0'+quarter))
}

func itoa4(n int) string {
	buf := [4]byte{}
	for i := 3; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
