package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolKey(t *testing.T) {
	assert.Equal(t, "AAPL.US", SymbolKey("AAPL", "US"))
	assert.Equal(t, "AAPL", SymbolKey("AAPL", ""))
}

func TestPrimaryMarket(t *testing.T) {
	s := &Symbol{
		Symbol: "BHP",
		Exchanges: []ExchangeListing{
			{MarketCode: "UK"},
			{MarketCode: "AU", IsPrimary: true},
		},
	}
	assert.Equal(t, "AU", s.PrimaryMarket())
	assert.Equal(t, "BHP.AU", s.Key())

	// No primary flag: first listing wins.
	s.Exchanges[1].IsPrimary = false
	assert.Equal(t, "UK", s.PrimaryMarket())

	assert.Equal(t, "", (&Symbol{Symbol: "X"}).PrimaryMarket())
}

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "AAPL#2023Q2", PeriodKey("AAPL", 2023, 2))
}

func TestHasFiscalIdentity(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		quarter int
		want    bool
	}{
		{"valid", 2023, 2, true},
		{"quarter too high", 2023, 5, false},
		{"quarter zero", 2023, 0, false},
		{"year too old", 1850, 1, false},
		{"year too far out", 2100, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FinancialPeriod{FiscalYear: tt.year, FiscalQuarter: tt.quarter}
			assert.Equal(t, tt.want, p.HasFiscalIdentity())
		})
	}
}

func TestHasMetrics(t *testing.T) {
	eps := 1.5
	assert.True(t, (&FinancialPeriod{EPSDiluted: &eps}).HasMetrics())
	assert.False(t, (&FinancialPeriod{}).HasMetrics())

	// Supplementary fields alone do not count as metrics.
	margin := 0.2
	assert.False(t, (&FinancialPeriod{ProfitMargin: &margin}).HasMetrics())
}
