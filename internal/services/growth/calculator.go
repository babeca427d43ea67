// Package growth computes and serves quarter-over-quarter EPS growth.
package growth

import (
	"math"
	"sort"

	"github.com/bobmcallan/finscan/internal/models"
)

// ComputeGrowth returns the EPS growth percentage for a current value against
// the prior quarter's value, rounded to two decimals. Sentinel rules keep the
// result defined for every input:
//   - no prior value: 0
//   - prior value of zero: +100 when current improved, -100 otherwise
func ComputeGrowth(current float64, previous *float64) float64 {
	if previous == nil {
		return 0
	}
	prev := *previous
	if prev == 0 {
		if current > 0 {
			return 100
		}
		return -100
	}
	growth := ((current - prev) / math.Abs(prev)) * 100
	return math.Round(growth*100) / 100
}

// BuildRecords derives growth records from a symbol's normalized periods.
// Periods must be ordered most recent first; each record pairs a period with
// the next older one as its baseline. Periods without a diluted EPS value
// produce no record and do not serve as a baseline.
func BuildRecords(symbol *models.Symbol, periods []*models.FinancialPeriod) []*models.EPSGrowthRecord {
	reported := make([]*models.FinancialPeriod, 0, len(periods))
	for _, p := range periods {
		if p.EPSDiluted != nil {
			reported = append(reported, p)
		}
	}

	records := make([]*models.EPSGrowthRecord, 0, len(reported))
	for i, p := range reported {
		var previous *float64
		if i+1 < len(reported) {
			previous = reported[i+1].EPSDiluted
		}

		records = append(records, &models.EPSGrowthRecord{
			Symbol:             symbol.Symbol,
			CompanyName:        symbol.CompanyName,
			MarketCode:         symbol.PrimaryMarket(),
			EPSDiluted:         *p.EPSDiluted,
			PreviousEPSDiluted: previous,
			EPSGrowth:          ComputeGrowth(*p.EPSDiluted, previous),
			ReportDate:         p.ReportDate,
			Year:               p.FiscalYear,
			Quarter:            p.FiscalQuarter,
		})
	}
	return records
}

// RankRecords assigns dense ranks by descending growth. Records with equal
// growth share a rank, and ties order by symbol so the result is stable.
func RankRecords(records []*models.EPSGrowthRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EPSGrowth != records[j].EPSGrowth {
			return records[i].EPSGrowth > records[j].EPSGrowth
		}
		return records[i].Symbol < records[j].Symbol
	})

	rank := 0
	for i, r := range records {
		if i == 0 || r.EPSGrowth != records[i-1].EPSGrowth {
			rank++
		}
		r.Rank = rank
	}
}
