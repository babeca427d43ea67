// Package storage selects and assembles the configured storage driver.
package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/storage/badger"
	"github.com/bobmcallan/finscan/internal/storage/surrealdb"
)

// Manager aggregates the store implementations for one driver behind a
// single handle with one Close.
type Manager struct {
	symbols    interfaces.SymbolStore
	financials interfaces.FinancialStore
	growth     interfaces.GrowthStore
	jobs       interfaces.JobStore
	closer     func() error
	logger     *common.Logger
}

// NewManager builds a storage manager for the configured driver. The
// embedded badger driver is the default; "surreal" connects to a SurrealDB
// server instead.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	driver := strings.ToLower(config.Storage.Driver)
	if driver == "" {
		driver = "badger"
	}

	switch driver {
	case "badger":
		store, err := badger.NewStore(logger, config.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
		}
		logger.Info().Str("driver", "badger").Str("path", config.Storage.Path).Msg("Storage initialized")
		return &Manager{
			symbols:    badger.NewSymbolStorage(store, logger),
			financials: badger.NewFinancialStorage(store, logger),
			growth:     badger.NewGrowthStorage(store, logger),
			jobs:       badger.NewJobStorage(store, logger),
			closer:     store.Close,
			logger:     logger,
		}, nil

	case "surreal":
		store, err := surrealdb.NewStore(logger, config.Storage.Surreal)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize surrealdb storage: %w", err)
		}
		logger.Info().Str("driver", "surreal").Str("url", config.Storage.Surreal.URL).Msg("Storage initialized")
		return &Manager{
			symbols:    surrealdb.NewSymbolStore(store, logger),
			financials: surrealdb.NewFinancialStore(store, logger),
			growth:     surrealdb.NewGrowthStore(store, logger),
			jobs:       surrealdb.NewJobStore(store, logger),
			closer:     store.Close,
			logger:     logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver '%s' (expected 'badger' or 'surreal')", config.Storage.Driver)
	}
}

func (m *Manager) SymbolStore() interfaces.SymbolStore       { return m.symbols }
func (m *Manager) FinancialStore() interfaces.FinancialStore { return m.financials }
func (m *Manager) GrowthStore() interfaces.GrowthStore       { return m.growth }
func (m *Manager) JobStore() interfaces.JobStore             { return m.jobs }

// Close releases the underlying driver connection.
func (m *Manager) Close() error {
	if m.closer != nil {
		return m.closer()
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
