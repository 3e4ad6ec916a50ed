package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stock-insight/src/data_source/csv"
	"stock-insight/src/data_source/yahoo"
	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	"go.uber.org/multierr"
)

// MultiSourceManager tries its sources in order and returns the first
// non-empty series. It is itself an IDataSource.
type MultiSourceManager struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	sources map[string]interfaces.IDataSource
	order   []string
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(cfg *models.MConfig, log *logger.Logger) *MultiSourceManager {
	return &MultiSourceManager{
		Config:  cfg,
		Logger:  log,
		sources: make(map[string]interfaces.IDataSource),
	}
}

// -----------------------------------------------------------------------------

// NewFromConfig builds the configured sources in data_source.sources order.
func NewFromConfig(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (*MultiSourceManager, error) {
	m := NewMultiSourceManager(cfg, log)
	for _, name := range cfg.DataSource.Sources {
		var src interfaces.IDataSource
		switch strings.ToLower(name) {
		case yahoo.SourceName:
			src = yahoo.NewYahooFinanceSource(cfg, netMgr, log.Named("yahoo"))
		case csv.SourceName:
			src = csv.NewCSVSource(cfg.DataSource.CSVDir, log.Named("csv"))
		default:
			return nil, fmt.Errorf("unknown data source %q", name)
		}
		if err := m.AddSource(src); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return strings.Join(m.order, "+")
}

// -----------------------------------------------------------------------------

// AddSource appends a source to the fallback chain.
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[source.Name()]; exists {
		return fmt.Errorf("source %s already exists", source.Name())
	}
	m.sources[source.Name()] = source
	m.order = append(m.order, source.Name())
	m.Logger.Info("Added data source: %s", source.Name())
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns the sources in fallback order
func (m *MultiSourceManager) GetAllSources() []interfaces.IDataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IDataSource, 0, len(m.order))
	for _, name := range m.order {
		list = append(list, m.sources[name])
	}
	return list
}

// -----------------------------------------------------------------------------

// FetchSeries walks the chain. Errors and empty results fall through to the
// next source. If every source errored the combined error is returned; if at
// least one answered empty, the empty series is returned.
func (m *MultiSourceManager) FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error) {
	sources := m.GetAllSources()
	if len(sources) == 0 {
		return nil, helpers.NewDataSourceError("no data sources configured", nil)
	}

	var errs error
	var empty *models.MPriceSeries

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := src.FetchSeries(ctx, ticker, start, end)
		if err != nil {
			m.Logger.Warning("Source %s failed for %s: %v", src.Name(), ticker, err)
			errs = multierr.Append(errs, err)
			continue
		}
		if series.Len() > 0 {
			return series, nil
		}
		if empty == nil {
			empty = series
		}
		m.Logger.Info("Source %s returned no data for %s", src.Name(), ticker)
	}

	if empty != nil {
		return empty, nil
	}
	return nil, helpers.NewDataSourceError(fmt.Sprintf("all sources failed for %s", ticker), errs)
}
