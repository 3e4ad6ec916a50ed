package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-insight/src/logger"
	"stock-insight/src/models"
)

type stubSource struct {
	name  string
	bars  int
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	series := &models.MPriceSeries{Ticker: ticker, Source: s.name}
	for i := 0; i < s.bars; i++ {
		series.Bars = append(series.Bars, models.MPriceBar{Date: start.AddDate(0, 0, i), Close: 1})
	}
	return series, nil
}

func newManager(t *testing.T, sources ...*stubSource) *MultiSourceManager {
	m := NewMultiSourceManager(&models.MConfig{}, logger.NewNopLogger())
	for _, s := range sources {
		if err := m.AddSource(s); err != nil {
			t.Fatalf("AddSource: %v", err)
		}
	}
	return m
}

func TestFetchSeriesFallback(t *testing.T) {
	failing := &stubSource{name: "yahoo", err: errors.New("timeout")}
	backup := &stubSource{name: "csv", bars: 3}
	m := newManager(t, failing, backup)

	series, err := m.FetchSeries(context.Background(), "AAPL", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if series.Source != "csv" || series.Len() != 3 {
		t.Errorf("got %s with %d bars", series.Source, series.Len())
	}
	if m.Name() != "yahoo+csv" {
		t.Errorf("name = %q", m.Name())
	}
}

func TestFetchSeriesFirstWins(t *testing.T) {
	primary := &stubSource{name: "yahoo", bars: 2}
	backup := &stubSource{name: "csv", bars: 5}
	m := newManager(t, primary, backup)

	series, _ := m.FetchSeries(context.Background(), "AAPL", time.Now(), time.Now())
	if series.Source != "yahoo" || backup.calls != 0 {
		t.Errorf("backup should not be called, source=%s calls=%d", series.Source, backup.calls)
	}
}

func TestFetchSeriesEmptyAndErrors(t *testing.T) {
	empty := &stubSource{name: "yahoo"}
	failing := &stubSource{name: "csv", err: errors.New("disk")}
	m := newManager(t, empty, failing)

	series, err := m.FetchSeries(context.Background(), "ZZZZ", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("empty answer should win over errors: %v", err)
	}
	if series.Len() != 0 {
		t.Errorf("expected empty series")
	}

	allFail := newManager(t, &stubSource{name: "a", err: errors.New("x")}, &stubSource{name: "b", err: errors.New("y")})
	if _, err := allFail.FetchSeries(context.Background(), "AAPL", time.Now(), time.Now()); err == nil {
		t.Fatalf("expected combined error")
	}
}

func TestAddSourceDuplicate(t *testing.T) {
	m := newManager(t, &stubSource{name: "yahoo"})
	if err := m.AddSource(&stubSource{name: "yahoo"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := m.GetSource("missing"); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := &models.MConfig{}
	cfg.DataSource.Sources = []string{"yahoo", "csv"}
	cfg.DataSource.CSVDir = t.TempDir()
	m, err := NewFromConfig(cfg, nil, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if len(m.GetAllSources()) != 2 {
		t.Errorf("sources = %d", len(m.GetAllSources()))
	}

	cfg.DataSource.Sources = []string{"bloomberg"}
	if _, err := NewFromConfig(cfg, nil, logger.NewNopLogger()); err == nil {
		t.Fatalf("expected unknown source error")
	}
}
