package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stock-insight/src/config"
	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/storage"

	"github.com/gorilla/websocket"
)

type fakeAnalyzer struct {
	err  error
	last models.MAnalysisRequest
}

func (f *fakeAnalyzer) Run(ctx context.Context, req models.MAnalysisRequest) (*models.MAnalysisResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	closeVal := 101.5
	return &models.MAnalysisResult{
		ID:        "r1",
		SessionID: "11111111-2222-3333-4444-555555555555",
		Ticker:    strings.ToUpper(req.Ticker),
		Trend:     "Uptrend 📈",
		Risk:      "Low Risk 🟢",
		Insight:   "steady",
		Rows:      2,
		LastClose: 101.5,
		Table: []models.MPredictionRow{
			{Date: "2024-01-02", Close: 100},
			{Date: "2024-01-03", Close: 101.5, Predicted: &closeVal},
		},
		Chart: models.MChartSeries{
			Dates: []string{"2024-01-02", "2024-01-03"},
			Close: []float64{100, 101.5},
			Label: "SMA 10",
		},
		Warnings: []string{},
	}, nil
}

func (f *fakeAnalyzer) Status() models.MServiceStatus {
	return models.MServiceStatus{Name: "test", Source: "stub"}
}

func newTestServer(t *testing.T, a *fakeAnalyzer) *InsightServer {
	t.Helper()
	cfg := &models.MConfig{Name: "test", LogLevel: "ERROR"}
	cfg.DataSource.DefaultTicker = "AAPL"
	cfg.DataSource.DefaultStart = "2018-01-01"
	cfg.DataSource.DefaultEnd = "2025-01-01"
	cfg.Session.TTLMinutes = 30

	s, err := NewInsightServer(cfg, logger.NewNopLogger(), a, storage.NewNoopDB())
	if err != nil {
		t.Fatalf("NewInsightServer: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	s := newTestServer(t, a)

	w := postJSON(t, s.Handler(), "/api/analyze", `{"ticker":"aapl","start":"2024-01-01","end":"2024-02-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var res models.MAnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Ticker != "AAPL" || res.Trend != "Uptrend 📈" {
		t.Errorf("result = %+v", res)
	}
	if a.last.Origin != "http" {
		t.Errorf("origin = %q", a.last.Origin)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), sessionCookie+"=11111111") {
		t.Errorf("session cookie missing: %q", w.Header().Get("Set-Cookie"))
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", helpers.NewValidationError("Please enter a ticker symbol."), http.StatusBadRequest, "Please enter a ticker symbol."},
		{"empty", helpers.NewEmptySeriesError("ZZZZ"), http.StatusUnprocessableEntity, helpers.MsgEmptySeries},
		{"upstream", helpers.NewNetworkError("timeout", nil), http.StatusBadGateway, helpers.MsgGenericFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeAnalyzer{err: tc.err})
			w := postJSON(t, s.Handler(), "/api/analyze", `{"ticker":"x"}`)
			if w.Code != tc.code {
				t.Fatalf("status = %d, want %d", w.Code, tc.code)
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] != tc.msg {
				t.Errorf("error = %q, want %q", body["error"], tc.msg)
			}
		})
	}

	s := newTestServer(t, &fakeAnalyzer{})
	if w := postJSON(t, s.Handler(), "/api/analyze", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{pageTitle, pageSubtitle, pageFooter, `value="AAPL"`, `value="2018-01-01"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "Uptrend") {
		t.Error("no analysis should run without a submitted ticker")
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?ticker=msft&start=2024-01-01&end=2024-02-01", nil))
	body = w.Body.String()
	for _, want := range []string{"Uptrend 📈", "Low Risk 🟢", "101.50", "2024-01-03"} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}
}

func TestDashboardShowsUserMessages(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{err: helpers.NewDataSourceError("boom", nil)})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?ticker=AAPL", nil))
	if !strings.Contains(w.Body.String(), helpers.MsgGenericFailure) {
		t.Error("generic failure message not rendered")
	}
}

func TestHealthConfigHistory(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})

	for _, path := range []string{"/api/health", "/api/config", "/api/history?ticker=aapl", "/api/tickers"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=-1", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d", w.Code)
	}
}

func TestConfigReadsLiveWatchlist(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})
	live := config.Default()
	live.SetWatchlistSymbols([]string{"AAPL"})
	s.SetWatchlistSource(live.WatchlistSymbols)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			live.SetWatchlistSymbols([]string{"MSFT", "IBM"})
		}
	}()
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	wg.Wait()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var body struct {
		Watchlist []string `json:"watchlist"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(body.Watchlist, ",") != "MSFT,IBM" {
		t.Errorf("watchlist = %v", body.Watchlist)
	}
}

func TestWebSocketReplayAndBroadcast(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})
	s.Broadcast(models.MAnalysisEvent{Type: models.EventTypeAnalysis, Record: models.MAnalysisRecord{ID: "old", Ticker: "IBM"}})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial models.MInitialEvents
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Type != models.EventTypeInitial || len(initial.Events) != 1 || initial.Events[0].Record.ID != "old" {
		t.Fatalf("initial = %+v", initial)
	}

	s.Broadcast(models.MAnalysisEvent{Type: models.EventTypeAnalysis, Record: models.MAnalysisRecord{ID: "new", Ticker: "AAPL"}})

	var live models.MAnalysisEvent
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if live.Type != models.EventTypeAnalysis || live.Record.ID != "new" {
		t.Errorf("live = %+v", live)
	}
}

func TestSubscribeFiltersReplay(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})
	for _, sym := range []string{"IBM", "AAPL", "IBM"} {
		s.Broadcast(models.MAnalysisEvent{Type: models.EventTypeAnalysis, Record: models.MAnalysisRecord{Ticker: sym}})
	}

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial models.MInitialEvents
	if err := conn.ReadJSON(&initial); err != nil || len(initial.Events) != 3 {
		t.Fatalf("initial = %+v err=%v", initial, err)
	}

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Symbols: []string{"ibm"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var filtered models.MInitialEvents
	if err := conn.ReadJSON(&filtered); err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if len(filtered.Events) != 2 {
		t.Errorf("filtered replay = %d events, want 2", len(filtered.Events))
	}
}

func TestSubscribeAfterDisconnectIsIgnored(t *testing.T) {
	s := newTestServer(t, &fakeAnalyzer{})
	s.Broadcast(models.MAnalysisEvent{Type: models.EventTypeAnalysis, Record: models.MAnalysisRecord{ID: "a", Ticker: "IBM"}})

	c := &Client{hub: s, send: make(chan interface{}, 4)}
	s.register <- c
	s.unregister <- c
	s.HandleClientMessage(c, []byte(`{"command":"subscribe","symbols":["ibm"]}`))

	// the hub handles messages in order, so the replay request is done once this returns
	s.register <- &Client{hub: s, send: make(chan interface{}, 4)}

	got := 0
	for range c.send {
		got++
	}
	if got != 1 {
		t.Errorf("messages after unregister = %d, want only the connect replay", got)
	}
}
