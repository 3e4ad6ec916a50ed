package insight

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"stock-insight/src/analysis"
	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/session"

	"github.com/google/uuid"
)

var tickerRx = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`)

// -----------------------------------------------------------------------------
// Service runs one analysis end to end and fans the summary out.
// -----------------------------------------------------------------------------

type Service struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Source    interfaces.IDataSource
	Predictor interfaces.IPredictor
	DB        interfaces.IDatabase
	Sessions  *session.Store
	Publisher interfaces.IEventPublisher
	Facade    *analysis.AnalysisFacade

	exchanger interfaces.IDataExchanger
	mu        sync.RWMutex
	analyses  atomic.Int64
	failures  atomic.Int64
	started   time.Time
	now       func() time.Time
}

// -----------------------------------------------------------------------------

// NewService wires the pipeline. predictor may be nil (heuristics only).
func NewService(
	cfg *models.MConfig,
	log *logger.Logger,
	source interfaces.IDataSource,
	predictor interfaces.IPredictor,
	db interfaces.IDatabase,
	sessions *session.Store,
	publisher interfaces.IEventPublisher,
) *Service {
	return &Service{
		Config:    cfg,
		Logger:    log,
		Source:    source,
		Predictor: predictor,
		DB:        db,
		Sessions:  sessions,
		Publisher: publisher,
		Facade:    analysis.NewAnalysisFacade(cfg, log.Named("facade")),
		started:   time.Now(),
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// SetExchanger attaches the live push channel once the server exists.
func (s *Service) SetExchanger(x interfaces.IDataExchanger) {
	s.mu.Lock()
	s.exchanger = x
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ValidateRequest normalises the ticker, fills blank dates from defaults and
// parses the range. End is exclusive and must come after start.
func ValidateRequest(req models.MAnalysisRequest, defaults models.MDataSourceConfig) (models.MAnalysisRequest, time.Time, time.Time, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		return req, time.Time{}, time.Time{}, helpers.NewValidationError("Please enter a ticker symbol.")
	}
	if !tickerRx.MatchString(req.Ticker) {
		return req, time.Time{}, time.Time{}, helpers.NewValidationError(fmt.Sprintf("%q is not a valid ticker symbol.", req.Ticker))
	}

	req.Start = strings.TrimSpace(req.Start)
	req.End = strings.TrimSpace(req.End)
	if req.Start == "" {
		req.Start = defaults.DefaultStart
	}
	if req.End == "" {
		req.End = defaults.DefaultEnd
	}

	start, err := time.Parse(models.DateLayout, req.Start)
	if err != nil {
		return req, time.Time{}, time.Time{}, helpers.NewValidationError("Start date must be formatted as YYYY-MM-DD.")
	}
	end, err := time.Parse(models.DateLayout, req.End)
	if err != nil {
		return req, time.Time{}, time.Time{}, helpers.NewValidationError("End date must be formatted as YYYY-MM-DD.")
	}
	if !start.Before(end) {
		return req, time.Time{}, time.Time{}, helpers.NewValidationError("Start date must be before end date.")
	}

	if req.Origin == "" {
		req.Origin = models.OriginHTTP
	}
	return req, start, end, nil
}

// -----------------------------------------------------------------------------

func (s *Service) Run(ctx context.Context, req models.MAnalysisRequest) (*models.MAnalysisResult, error) {
	req, start, end, err := ValidateRequest(req, s.Config.DataSource)
	if err != nil {
		return nil, err
	}
	useCache := cacheable(req)
	req.SessionID = session.Ensure(req.SessionID)

	fetchStart := time.Now()
	series, cacheHit, err := s.fetch(ctx, req, start, end, useCache)
	if err != nil {
		s.failures.Add(1)
		s.Logger.Error("Fetch failed for %s [%s, %s): %v", req.Ticker, req.Start, req.End, err)
		return nil, err
	}
	fetchSeconds := time.Since(fetchStart).Seconds()

	if series.Len() == 0 {
		s.failures.Add(1)
		s.Logger.Warning("No data for %s [%s, %s)", req.Ticker, req.Start, req.End)
		return nil, helpers.NewEmptySeriesError(req.Ticker)
	}

	analysisStart := time.Now()
	result, err := s.Facade.Analyze(series, s.Predictor)
	if err != nil {
		s.failures.Add(1)
		s.Logger.Error("Analysis failed for %s: %v", req.Ticker, err)
		return nil, err
	}

	result.ID = uuid.NewString()
	result.SessionID = req.SessionID
	result.Start = req.Start
	result.End = req.End
	result.CreatedAt = s.now().UTC()
	result.Metrics = models.MProcessingMetrics{
		FetchSeconds:    fetchSeconds,
		AnalysisSeconds: time.Since(analysisStart).Seconds(),
		CacheHit:        cacheHit,
	}

	s.analyses.Add(1)
	s.Logger.Info("Analyzed %s (%d rows, origin=%s): %s / %s", result.Ticker, result.Rows, req.Origin, result.Trend, result.Risk)

	s.fanOut(ctx, models.NewAnalysisRecord(result, req.Origin))
	return result, nil
}

// -----------------------------------------------------------------------------

// cacheable reports whether the run may occupy a session cache slot.
// Scheduled passes and RPC callers without a session never do.
func cacheable(req models.MAnalysisRequest) bool {
	switch req.Origin {
	case models.OriginHTTP:
		return true
	case models.OriginWatchlist:
		return false
	default:
		return req.SessionID != ""
	}
}

// -----------------------------------------------------------------------------

// fetch reuses the session's series when the same range was already loaded.
func (s *Service) fetch(ctx context.Context, req models.MAnalysisRequest, start, end time.Time, useCache bool) (*models.MPriceSeries, bool, error) {
	key := session.SeriesKey(req.Ticker, req.Start, req.End)
	if s.Sessions != nil && useCache {
		if cached, ok := s.Sessions.Get(req.SessionID, key); ok {
			s.Logger.Debug("Session %s reuses %s", req.SessionID, key)
			return cached, true, nil
		}
	}

	series, err := s.Source.FetchSeries(ctx, req.Ticker, start, end)
	if err != nil {
		return nil, false, err
	}
	if s.Sessions != nil && useCache && series.Len() > 0 {
		s.Sessions.Put(req.SessionID, key, series)
	}
	return series, false, nil
}

// -----------------------------------------------------------------------------

// fanOut journals, broadcasts and publishes the summary. Failures here never
// fail the analysis.
func (s *Service) fanOut(ctx context.Context, record models.MAnalysisRecord) {
	if s.DB != nil {
		if err := s.DB.SaveAnalysis(ctx, record); err != nil {
			s.Logger.Error("Failed to journal analysis %s: %v", record.ID, err)
		}
	}

	event := models.MAnalysisEvent{Type: models.EventTypeAnalysis, Record: record}

	s.mu.RLock()
	x := s.exchanger
	s.mu.RUnlock()
	if x != nil {
		x.Broadcast(event)
	}

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, event); err != nil {
			s.Logger.Warning("Failed to publish analysis %s: %v", record.ID, err)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Service) Status() models.MServiceStatus {
	st := models.MServiceStatus{
		Name:          s.Config.Name,
		Source:        s.Source.Name(),
		ModelLoaded:   s.Predictor != nil,
		Analyses:      s.analyses.Load(),
		Failures:      s.failures.Load(),
		MemoryMB:      helpers.GetProcessMemoryMB(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.Predictor != nil {
		st.ModelName = s.Predictor.Name()
	}
	if s.Sessions != nil {
		st.Sessions = s.Sessions.Len()
		st.MaxMemoryMB = s.Sessions.MaxMemoryMB
	}
	return st
}
