package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/utils"

	"github.com/robfig/cron/v3"
)

// PassSummary counts the outcome of one watchlist pass.
type PassSummary struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Watchlist re-runs the analysis for a fixed set of symbols on a cron schedule.
type Watchlist struct {
	Cron     *cron.Cron
	Config   *models.MConfig
	Analyzer interfaces.IAnalyzer
	DB       interfaces.IDatabase
	Markets  *utils.MarketScheduler
	Logger   *logger.Logger

	// IsTradingDay defaults to Markets.IsTradingDay.
	IsTradingDay func(symbol string) bool

	ctx     context.Context
	symbols []string
	mu      sync.RWMutex
	running sync.Mutex
	now     func() time.Time
}

// NewWatchlist creates a Watchlist. ctx bounds every scheduled pass.
func NewWatchlist(ctx context.Context, cfg *models.MConfig, analyzer interfaces.IAnalyzer, db interfaces.IDatabase, log *logger.Logger) *Watchlist {
	markets := utils.NewMarketScheduler(cfg.Watchlist.Symbols, log.Named("markets"))
	return &Watchlist{
		Cron:         cron.New(cron.WithSeconds()),
		Config:       cfg,
		Analyzer:     analyzer,
		DB:           db,
		Markets:      markets,
		Logger:       log,
		IsTradingDay: markets.IsTradingDay,
		ctx:          ctx,
		symbols:      append([]string(nil), cfg.Watchlist.Symbols...),
		now:          time.Now,
	}
}

// Register adds the pass to the cron table.
func (w *Watchlist) Register() error {
	if _, err := w.Cron.AddFunc(w.Config.Watchlist.Cron, func() { w.RunNow(w.ctx) }); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (w *Watchlist) Start() {
	w.Cron.Start()
	w.Logger.Info("Watchlist scheduler started (%s, %d symbols)", w.Config.Watchlist.Cron, len(w.Symbols()))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (w *Watchlist) Stop() {
	<-w.Cron.Stop().Done()
	w.Logger.Info("Watchlist scheduler stopped")
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the watched symbols for the next pass.
func (w *Watchlist) UpdateSymbols(symbols []string) {
	w.mu.Lock()
	w.symbols = append([]string(nil), symbols...)
	w.mu.Unlock()
	w.Markets.UpdateSymbols(symbols)
}

func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.symbols...)
}

// -----------------------------------------------------------------------------

// RunNow analyses every symbol whose exchange trades today over the trailing
// lookback window, then applies the retention policy. Overlapping passes are
// skipped.
func (w *Watchlist) RunNow(ctx context.Context) PassSummary {
	var summary PassSummary
	if !w.running.TryLock() {
		w.Logger.Warning("Watchlist pass already running, skipping")
		return summary
	}
	defer w.running.Unlock()

	today := w.now().UTC()
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -w.Config.Watchlist.LookbackDays)

	if w.Markets != nil && w.Markets.AnyMarketOpen() {
		w.Logger.Info("Watchlist pass started during market hours, latest bars may be partial")
	}

	for _, symbol := range w.Symbols() {
		if ctx.Err() != nil {
			break
		}
		if !w.IsTradingDay(symbol) {
			w.Logger.Debug("Skipping %s: exchange closed today", symbol)
			summary.Skipped++
			continue
		}

		_, err := w.Analyzer.Run(ctx, models.MAnalysisRequest{
			Ticker: symbol,
			Start:  start.Format(models.DateLayout),
			End:    end.Format(models.DateLayout),
			Origin: models.OriginWatchlist,
		})
		if err != nil {
			w.Logger.Warning("Watchlist analysis failed for %s: %v", symbol, err)
			summary.Failed++
			continue
		}
		summary.Analyzed++
	}

	if w.DB != nil {
		if err := w.DB.CleanupOldData(ctx); err != nil {
			w.Logger.Error("Retention cleanup failed: %v", err)
		}
	}

	w.Logger.Info("Watchlist pass done: %d analyzed, %d skipped, %d failed", summary.Analyzed, summary.Skipped, summary.Failed)
	return summary
}
