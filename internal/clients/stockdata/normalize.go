package stockdata

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

// Column names expected in the source payload's column map.
const (
	colFiscalYear      = "fiscalYear"
	colFiscalQuarter   = "fiscalQuarter"
	colReportDate      = "reportDate"
	colRevenue         = "revenue"
	colRevenueGrowth   = "revenueGrowth"
	colOperatingIncome = "operatingIncome"
	colInterestExpense = "interestExpense"
	colNetIncome       = "netIncome"
	colEPSBasic        = "epsBasic"
	colEPSDiluted      = "epsDiluted"
	colFreeCashFlow    = "freeCashFlow"
	colProfitMargin    = "profitMargin"
	colOperatingExp    = "totalOperatingExpenses"
)

// Normalizer transforms raw statement payloads into canonical per-period
// records. Structural problems are logged and yield an empty result — the
// normalizer never fails the pipeline.
type Normalizer struct {
	logger *common.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *common.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize resolves the column map, coerces field values, and returns one
// record per reporting period, most recent first. Periods missing a fiscal
// identity or carrying no financial metrics are dropped.
func (n *Normalizer) Normalize(symbol string, raw *interfaces.RawFinancials) []*models.FinancialPeriod {
	if raw == nil || len(raw.ColumnMap) == 0 || len(raw.Rows) == 0 {
		return nil
	}

	yearIdx, yearOK := raw.ColumnMap[colFiscalYear]
	quarterIdx, quarterOK := raw.ColumnMap[colFiscalQuarter]
	if !yearOK || !quarterOK {
		n.logger.Warn().
			Str("symbol", symbol).
			Msg("Statement payload missing fiscal identity columns, skipping")
		return nil
	}

	periods := make([]*models.FinancialPeriod, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		year, ok := parseFiscalYear(valueAt(row, yearIdx))
		if !ok {
			continue
		}
		quarter, ok := parseFiscalQuarter(valueAt(row, quarterIdx))
		if !ok {
			continue
		}

		p := &models.FinancialPeriod{
			Symbol:        symbol,
			FiscalYear:    year,
			FiscalQuarter: quarter,
		}

		if idx, ok := raw.ColumnMap[colReportDate]; ok {
			p.ReportDate = parseReportDate(valueAt(row, idx))
		}

		p.Revenue = numericAt(raw.ColumnMap, row, colRevenue)
		p.RevenueGrowth = numericAt(raw.ColumnMap, row, colRevenueGrowth)
		p.OperatingIncome = numericAt(raw.ColumnMap, row, colOperatingIncome)
		p.InterestExpense = numericAt(raw.ColumnMap, row, colInterestExpense)
		p.NetIncome = numericAt(raw.ColumnMap, row, colNetIncome)
		p.EPSBasic = numericAt(raw.ColumnMap, row, colEPSBasic)
		p.EPSDiluted = numericAt(raw.ColumnMap, row, colEPSDiluted)
		p.FreeCashFlow = numericAt(raw.ColumnMap, row, colFreeCashFlow)
		p.ProfitMargin = numericAt(raw.ColumnMap, row, colProfitMargin)
		p.TotalOperatingExpenses = numericAt(raw.ColumnMap, row, colOperatingExp)

		if !p.HasMetrics() {
			// Fiscal identity without any metric carries no signal.
			continue
		}

		periods = append(periods, p)
	}

	// Most recent period first.
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].FiscalYear != periods[j].FiscalYear {
			return periods[i].FiscalYear > periods[j].FiscalYear
		}
		return periods[i].FiscalQuarter > periods[j].FiscalQuarter
	})

	return periods
}

// valueAt returns row[idx] or nil when the index is out of range.
func valueAt(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// numericAt resolves a named column and coerces its value, returning nil for
// absent columns or unparseable values.
func numericAt(columns map[string]int, row []interface{}, name string) *float64 {
	idx, ok := columns[name]
	if !ok {
		return nil
	}
	return parseNumeric(valueAt(row, idx))
}

// parseNumeric coerces a raw value into a float, accepting numbers and
// numeric strings. NaN, infinities, and junk are rejected as nil.
func parseNumeric(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "N/A" || s == "-" {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseFiscalQuarter accepts numeric or "Q#" string forms, rejecting values
// outside 1–4.
func parseFiscalQuarter(v interface{}) (int, bool) {
	var q int
	switch t := v.(type) {
	case float64:
		q = int(t)
	case int:
		q = t
	case string:
		s := strings.TrimSpace(strings.ToUpper(t))
		s = strings.TrimPrefix(s, "Q")
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		q = parsed
	default:
		return 0, false
	}
	if q < 1 || q > 4 {
		return 0, false
	}
	return q, true
}

// parseFiscalYear accepts numeric or string years within [1900, 2100).
func parseFiscalYear(v interface{}) (int, bool) {
	var y int
	switch t := v.(type) {
	case float64:
		y = int(t)
	case int:
		y = t
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		y = parsed
	default:
		return 0, false
	}
	if y < 1900 || y >= 2100 {
		return 0, false
	}
	return y, true
}

// parseReportDate accepts "2006-01-02" strings; other shapes yield zero time.
func parseReportDate(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return d
}
