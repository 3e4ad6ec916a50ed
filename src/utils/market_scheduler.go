package utils

import (
	"sync"
	"time"

	"stock-insight/src/logger"
)

// MarketScheduler tracks the exchange calendar of each watched symbol.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.UpdateSymbols(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the tracked symbol set
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	calendars := make(map[string]*TradingCalendar, len(symbols))
	unique := make(map[string]struct{})
	for _, symbol := range symbols {
		cal := GetCalendar(symbol)
		calendars[symbol] = cal
		unique[cal.MIC] = struct{}{}
	}

	ms.mu.Lock()
	ms.Calendars = calendars
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: Mapped %d symbols to %d unique calendars.", len(symbols), len(unique))
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether symbol's exchange trades today.
// Unknown symbols are looked up on the fly.
func (ms *MarketScheduler) IsTradingDay(symbol string) bool {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()
	if !ok {
		cal = GetCalendar(symbol)
	}

	now := ms.now()
	if cal.Timezone != nil {
		now = now.In(cal.Timezone)
	}
	return cal.IsTradingDay(now)
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := ms.now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[string]bool)
	for _, cal := range ms.Calendars {
		if seen[cal.MIC] {
			continue
		}
		seen[cal.MIC] = true
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
