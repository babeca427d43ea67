package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

const periodSelectFields = "symbol, fiscal_year, fiscal_quarter, report_date, " +
	"revenue, revenue_growth, operating_income, interest_expense, net_income, " +
	"eps_basic, eps_diluted, free_cash_flow, profit_margin, total_operating_expenses"

// FinancialStore implements interfaces.FinancialStore using SurrealDB.
// Periods are keyed on (symbol, fiscal year, fiscal quarter) via the record
// ID, so refetching a symbol overwrites rather than duplicates.
type FinancialStore struct {
	store  *Store
	logger *common.Logger
}

// NewFinancialStore creates a new FinancialStore.
func NewFinancialStore(store *Store, logger *common.Logger) *FinancialStore {
	return &FinancialStore{store: store, logger: logger}
}

func (s *FinancialStore) UpsertPeriod(ctx context.Context, period *models.FinancialPeriod) error {
	if !period.HasFiscalIdentity() {
		return fmt.Errorf("refusing to save period for '%s' without fiscal identity", period.Symbol)
	}

	sql := `UPSERT $rid SET
		symbol = $symbol, fiscal_year = $year, fiscal_quarter = $quarter,
		report_date = $report_date, revenue = $revenue, revenue_growth = $revenue_growth,
		operating_income = $operating_income, interest_expense = $interest_expense,
		net_income = $net_income, eps_basic = $eps_basic, eps_diluted = $eps_diluted,
		free_cash_flow = $free_cash_flow, profit_margin = $profit_margin,
		total_operating_expenses = $total_operating_expenses`
	vars := map[string]any{
		"rid":                      surrealmodels.NewRecordID("financial_period", period.PeriodKey()),
		"symbol":                   period.Symbol,
		"year":                     period.FiscalYear,
		"quarter":                  period.FiscalQuarter,
		"report_date":              period.ReportDate,
		"revenue":                  period.Revenue,
		"revenue_growth":           period.RevenueGrowth,
		"operating_income":         period.OperatingIncome,
		"interest_expense":         period.InterestExpense,
		"net_income":               period.NetIncome,
		"eps_basic":                period.EPSBasic,
		"eps_diluted":              period.EPSDiluted,
		"free_cash_flow":           period.FreeCashFlow,
		"profit_margin":            period.ProfitMargin,
		"total_operating_expenses": period.TotalOperatingExpenses,
	}

	if _, err := surrealdb.Query[any](ctx, s.store.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert period '%s': %w", period.PeriodKey(), err)
	}
	return nil
}

func (s *FinancialStore) GetPeriods(ctx context.Context, symbol string) ([]*models.FinancialPeriod, error) {
	sql := "SELECT " + periodSelectFields +
		" FROM financial_period WHERE symbol = $symbol ORDER BY fiscal_year DESC, fiscal_quarter DESC"
	vars := map[string]any{"symbol": symbol}

	results, err := surrealdb.Query[[]models.FinancialPeriod](ctx, s.store.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get periods for '%s': %w", symbol, err)
	}
	return allResults(results), nil
}

// Compile-time check
var _ interfaces.FinancialStore = (*FinancialStore)(nil)
