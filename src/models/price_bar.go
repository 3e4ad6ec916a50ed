package models

import "time"

// DateLayout is the calendar-date format used for bars and request ranges.
const DateLayout = "2006-01-02"

// MPriceBar is one daily OHLCV record.
type MPriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// -----------------------------------------------------------------------------

// MPriceSeries is a fetched, date-ordered series for one ticker.
// Bars are strictly increasing by Date and are not modified after fetch.
type MPriceSeries struct {
	Ticker    string      `json:"ticker"`
	Source    string      `json:"source"`
	Bars      []MPriceBar `json:"bars"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// -----------------------------------------------------------------------------

// Len returns the number of bars, nil-safe.
func (s *MPriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// -----------------------------------------------------------------------------

// Closes returns a copy of the close column.
func (s *MPriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// -----------------------------------------------------------------------------

// MFeatureRow is the model input derived from a bar and its predecessor.
type MFeatureRow struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	PrevClose float64   `json:"prev_close"`
	Close     float64   `json:"close"` // target
}

// Vector returns the features in model order.
func (r MFeatureRow) Vector() []float64 {
	return []float64{r.Open, r.High, r.Low, r.Volume, r.PrevClose}
}
