package insight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stock-insight/src/analysis"
	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/session"
)

type stubSource struct {
	bars  []models.MPriceBar
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.MPriceSeries{Ticker: ticker, Source: "stub", Bars: s.bars}, nil
}

type memoryDB struct {
	mu      sync.Mutex
	records []models.MAnalysisRecord
	err     error
}

func (d *memoryDB) Initialize(ctx context.Context) error { return nil }
func (d *memoryDB) SaveAnalysis(ctx context.Context, r models.MAnalysisRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.records = append(d.records, r)
	return nil
}
func (d *memoryDB) RecentAnalyses(ctx context.Context, ticker string, limit int) ([]models.MAnalysisRecord, error) {
	return d.records, nil
}
func (d *memoryDB) ListTickers(ctx context.Context) ([]models.MTickerSummary, error) { return nil, nil }
func (d *memoryDB) CleanupOldData(ctx context.Context) error                       { return nil }
func (d *memoryDB) Close() error                                                   { return nil }

type captureExchanger struct{ events []models.MAnalysisEvent }

func (c *captureExchanger) Broadcast(e models.MAnalysisEvent) { c.events = append(c.events, e) }
func (c *captureExchanger) Start() error                      { return nil }
func (c *captureExchanger) Stop() error                       { return nil }

type capturePublisher struct {
	events []models.MAnalysisEvent
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, e models.MAnalysisEvent) error {
	p.events = append(p.events, e)
	return p.err
}
func (p *capturePublisher) Close() error { return nil }

func bars(n int, start, step float64) []models.MPriceBar {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.MPriceBar, n)
	for i := range out {
		c := start + float64(i)*step
		out[i] = models.MPriceBar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	return out
}

func testConfig() *models.MConfig {
	cfg := &models.MConfig{Name: "test"}
	cfg.DataSource.DefaultStart = "2018-01-01"
	cfg.DataSource.DefaultEnd = "2025-01-01"
	cfg.Analysis.MinRows = 30
	cfg.Analysis.TableRows = 10
	cfg.Analysis.SMAWindow = 10
	cfg.Session.TTLMinutes = 30
	cfg.Session.MaxSessions = 8
	cfg.Session.MaxMemoryMB = 1 << 20
	return cfg
}

func newTestService(src *stubSource, db *memoryDB, pub *capturePublisher) *Service {
	cfg := testConfig()
	log := logger.NewNopLogger()
	return NewService(cfg, log, src, nil, db, session.NewStore(cfg.Session, log), pub)
}

func TestValidateRequest(t *testing.T) {
	defaults := testConfig().DataSource

	req, start, end, err := ValidateRequest(models.MAnalysisRequest{Ticker: " aapl "}, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Ticker != "AAPL" || req.Start != "2018-01-01" || req.End != "2025-01-01" || req.Origin != "http" {
		t.Errorf("defaults not applied: %+v", req)
	}
	if !start.Before(end) {
		t.Errorf("bad range %v %v", start, end)
	}

	bad := []models.MAnalysisRequest{
		{Ticker: ""},
		{Ticker: "AA PL"},
		{Ticker: "AAPL", Start: "01/02/2020"},
		{Ticker: "AAPL", Start: "2024-01-01", End: "2024-01-01"},
		{Ticker: "AAPL", Start: "2024-02-01", End: "2024-01-01"},
	}
	for _, r := range bad {
		if _, _, _, err := ValidateRequest(r, defaults); !helpers.IsValidation(err) {
			t.Errorf("%+v: expected validation error, got %v", r, err)
		}
	}

	for _, ok := range []string{"BRK.B", "^GSPC", "EURUSD=X", "SHOP.TO"} {
		if _, _, _, err := ValidateRequest(models.MAnalysisRequest{Ticker: ok}, defaults); err != nil {
			t.Errorf("%s rejected: %v", ok, err)
		}
	}
}

func TestRunFansOut(t *testing.T) {
	src := &stubSource{bars: bars(40, 100, 1)}
	db := &memoryDB{}
	pub := &capturePublisher{}
	x := &captureExchanger{}
	svc := newTestService(src, db, pub)
	svc.SetExchanger(x)

	res, err := svc.Run(context.Background(), models.MAnalysisRequest{Ticker: "msft", Start: "2024-01-01", End: "2024-03-01"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ID == "" || res.SessionID == "" || res.Ticker != "MSFT" {
		t.Errorf("result ids not set: %+v", res)
	}
	if res.Trend != analysis.TrendUp {
		t.Errorf("trend = %q", res.Trend)
	}
	if res.PredictionEnabled {
		t.Error("no predictor configured")
	}
	if len(db.records) != 1 || len(x.events) != 1 || len(pub.events) != 1 {
		t.Fatalf("fan-out counts db=%d ws=%d amqp=%d", len(db.records), len(x.events), len(pub.events))
	}
	if x.events[0].Type != models.EventTypeAnalysis || x.events[0].Record.ID != res.ID || x.events[0].Record.Origin != "http" {
		t.Errorf("event = %+v", x.events[0])
	}
}

func TestRunReusesSessionSeries(t *testing.T) {
	src := &stubSource{bars: bars(40, 100, 0)}
	svc := newTestService(src, &memoryDB{}, &capturePublisher{})
	req := models.MAnalysisRequest{Ticker: "IBM", Start: "2024-01-01", End: "2024-03-01"}

	first, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	req.SessionID = first.SessionID
	second, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
	if !second.Metrics.CacheHit || first.Metrics.CacheHit {
		t.Errorf("cache flags = %v, %v", first.Metrics.CacheHit, second.Metrics.CacheHit)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session id changed")
	}
}

func TestRunErrors(t *testing.T) {
	svc := newTestService(&stubSource{}, &memoryDB{}, &capturePublisher{})
	_, err := svc.Run(context.Background(), models.MAnalysisRequest{Ticker: "NOPE"})
	if !helpers.IsEmptySeries(err) || helpers.UserMessage(err) != helpers.MsgEmptySeries {
		t.Errorf("empty series: %v", err)
	}

	svc = newTestService(&stubSource{err: helpers.NewDataSourceError("boom", errors.New("timeout"))}, &memoryDB{}, &capturePublisher{})
	_, err = svc.Run(context.Background(), models.MAnalysisRequest{Ticker: "AAPL"})
	if err == nil || helpers.UserMessage(err) != helpers.MsgGenericFailure {
		t.Errorf("fetch failure: %v", err)
	}
	if st := svc.Status(); st.Failures != 1 || st.Analyses != 0 {
		t.Errorf("status counters = %+v", st)
	}
}

func TestRunSurvivesSinkFailures(t *testing.T) {
	db := &memoryDB{err: errors.New("disk full")}
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := newTestService(&stubSource{bars: bars(5, 10, 1)}, db, pub)

	res, err := svc.Run(context.Background(), models.MAnalysisRequest{Ticker: "AAPL"})
	if err != nil {
		t.Fatalf("sink failures must not fail the run: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != helpers.MsgNotEnoughData {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestScheduledRunsDoNotEvictSessions(t *testing.T) {
	src := &stubSource{bars: bars(40, 100, 1)}
	cfg := testConfig()
	cfg.Session.MaxSessions = 2
	log := logger.NewNopLogger()
	store := session.NewStore(cfg.Session, log)
	svc := NewService(cfg, log, src, nil, &memoryDB{}, store, &capturePublisher{})
	ctx := context.Background()

	user := models.MAnalysisRequest{Ticker: "AAPL", Start: "2024-01-01", End: "2024-03-01"}
	first, err := svc.Run(ctx, user)
	if err != nil {
		t.Fatalf("user Run: %v", err)
	}

	for _, sym := range []string{"MSFT", "IBM"} {
		if _, err := svc.Run(ctx, models.MAnalysisRequest{Ticker: sym, Start: "2024-01-01", End: "2024-03-01", Origin: models.OriginWatchlist}); err != nil {
			t.Fatalf("watchlist Run %s: %v", sym, err)
		}
	}
	if _, err := svc.Run(ctx, models.MAnalysisRequest{Ticker: "IBM", Origin: models.OriginGRPC}); err != nil {
		t.Fatalf("grpc Run: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("sessions = %d, want only the interactive one", store.Len())
	}

	user.SessionID = first.SessionID
	again, err := svc.Run(ctx, user)
	if err != nil {
		t.Fatalf("repeat Run: %v", err)
	}
	if !again.Metrics.CacheHit {
		t.Error("user series evicted by scheduled runs")
	}
	if src.calls != 4 {
		t.Errorf("source called %d times, want 4", src.calls)
	}
}

func TestRPCRunWithSessionUsesCache(t *testing.T) {
	src := &stubSource{bars: bars(40, 100, 1)}
	svc := newTestService(src, &memoryDB{}, &capturePublisher{})
	sid := session.Ensure("")
	req := models.MAnalysisRequest{Ticker: "AAPL", SessionID: sid, Origin: models.OriginGRPC}

	for i := 0; i < 2; i++ {
		if _, err := svc.Run(context.Background(), req); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
}
