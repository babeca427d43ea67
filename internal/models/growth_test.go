package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrowthKey(t *testing.T) {
	r := &EPSGrowthRecord{Symbol: "AAPL", Year: 2023, Quarter: 2}
	assert.Equal(t, "AAPL#2023Q2", r.GrowthKey())
}

func TestIsComplete(t *testing.T) {
	complete := EPSGrowthRecord{
		Symbol:      "AAPL",
		CompanyName: "Apple Inc.",
		MarketCode:  "US",
		ReportDate:  time.Now(),
		Year:        2023,
		Quarter:     2,
	}
	assert.True(t, complete.IsComplete())

	for name, mutate := range map[string]func(*EPSGrowthRecord){
		"missing symbol":      func(r *EPSGrowthRecord) { r.Symbol = "" },
		"missing company":     func(r *EPSGrowthRecord) { r.CompanyName = "" },
		"missing market":      func(r *EPSGrowthRecord) { r.MarketCode = "" },
		"zero report date":    func(r *EPSGrowthRecord) { r.ReportDate = time.Time{} },
		"quarter out of band": func(r *EPSGrowthRecord) { r.Quarter = 5 },
		"implausible year":    func(r *EPSGrowthRecord) { r.Year = 1850 },
	} {
		t.Run(name, func(t *testing.T) {
			r := complete
			mutate(&r)
			assert.False(t, r.IsComplete())
		})
	}
}

func TestBatchKey(t *testing.T) {
	b := &Batch{JobID: "job-1", Number: 7}
	assert.Equal(t, "job-1#0007", b.BatchKey())
}
