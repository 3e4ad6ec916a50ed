package analysis

import (
	"fmt"
	"math"
	"time"

	"stock-insight/src/analysis/core"
	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
	"stock-insight/src/prediction"
	"stock-insight/src/utils"
)

// -----------------------------------------------------------------------------
// AnalysisFacade turns a fetched series into everything the dashboard shows.
// -----------------------------------------------------------------------------

type AnalysisFacade struct {
	Config *models.MConfig
	Logger *logger.Logger
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config: cfg,
		Logger: log,
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

// Analyze classifies the series and, when predictor is non-nil and the series
// is long enough, attaches predicted closes. Labels are always computed.
func (af *AnalysisFacade) Analyze(series *models.MPriceSeries, predictor interfaces.IPredictor) (*models.MAnalysisResult, error) {
	if series.Len() == 0 {
		return nil, helpers.NewEmptySeriesError(series.Ticker)
	}

	bars := series.Bars
	closes := series.Closes()

	trend, trendPct := ClassifyTrend(closes)
	risk, vol := CalculateRisk(closes)

	result := &models.MAnalysisResult{
		Ticker:             series.Ticker,
		Source:             series.Source,
		Trend:              trend,
		Risk:               risk,
		Insight:            GetInsight(trend, risk),
		TrendChangePercent: round(trendPct, 4),
		VolatilityPercent:  round(vol, 4),
		Rows:               len(bars),
		LastClose:          closes[len(closes)-1],
		Warnings:           []string{},
	}

	predicted := make([]*float64, len(bars))
	if len(bars) < af.Config.Analysis.MinRows {
		result.Warnings = append(result.Warnings, helpers.MsgNotEnoughData)
		af.Logger.Info("%s has %d rows (< %d), skipping prediction", series.Ticker, len(bars), af.Config.Analysis.MinRows)
	} else if predictor != nil {
		metrics, err := af.predict(bars, predictor, predicted)
		if err != nil {
			return nil, err
		}
		result.PredictionEnabled = true
		result.ModelMetrics = metrics
	}

	result.Table = af.buildTable(bars, predicted)
	result.Chart = af.buildChart(bars, closes, predicted)
	result.Coverage = af.coverage(series)

	return result, nil
}

// -----------------------------------------------------------------------------

// predict fills out[i] for every bar that has a predecessor.
func (af *AnalysisFacade) predict(bars []models.MPriceBar, predictor interfaces.IPredictor, out []*float64) (*models.MModelMetrics, error) {
	rows := prediction.BuildFeatureRows(bars)
	preds, err := predictor.Predict(rows)
	if err != nil {
		return nil, helpers.NewPredictionError(fmt.Sprintf("predict with %s", predictor.Name()), err)
	}
	if len(preds) != len(rows) {
		return nil, helpers.NewPredictionError(fmt.Sprintf("predictor returned %d values for %d rows", len(preds), len(rows)), nil)
	}

	for i := range preds {
		if math.IsNaN(preds[i]) || math.IsInf(preds[i], 0) {
			return nil, helpers.NewPredictionError("predictor returned a non-finite value", nil)
		}
		v := round(preds[i], 4)
		out[i+1] = &v
	}

	mae, rmse := prediction.Evaluate(prediction.Targets(rows), preds)
	return &models.MModelMetrics{MAE: round(mae, 4), RMSE: round(rmse, 4), Rows: len(rows)}, nil
}

// -----------------------------------------------------------------------------

func (af *AnalysisFacade) buildTable(bars []models.MPriceBar, predicted []*float64) []models.MPredictionRow {
	n := af.Config.Analysis.TableRows
	from := len(bars) - n
	if from < 0 {
		from = 0
	}

	table := make([]models.MPredictionRow, 0, len(bars)-from)
	for i := from; i < len(bars); i++ {
		table = append(table, models.MPredictionRow{
			Date:      bars[i].Date.Format(models.DateLayout),
			Close:     bars[i].Close,
			Predicted: predicted[i],
		})
	}
	return table
}

// -----------------------------------------------------------------------------

func (af *AnalysisFacade) buildChart(bars []models.MPriceBar, closes []float64, predicted []*float64) models.MChartSeries {
	dates := make([]string, len(bars))
	for i, b := range bars {
		dates[i] = b.Date.Format(models.DateLayout)
	}

	window := af.Config.Analysis.SMAWindow
	return models.MChartSeries{
		Dates:     dates,
		Close:     closes,
		Predicted: predicted,
		Derived:   core.SimpleMovingAverage(closes, window),
		Label:     fmt.Sprintf("SMA %d", window),
	}
}

// -----------------------------------------------------------------------------

// coverage compares bar count with the exchange's trading days over the same span.
func (af *AnalysisFacade) coverage(series *models.MPriceSeries) models.MCoverage {
	cal := utils.GetCalendar(series.Ticker)
	first := series.Bars[0].Date
	last := series.Bars[len(series.Bars)-1].Date

	expected := cal.ExpectedSessions(first, last)
	pct := 100.0
	if expected > 0 {
		pct = math.Min(100, float64(series.Len())/float64(expected)*100)
	}

	return models.MCoverage{
		Exchange:         cal.MIC,
		ExpectedSessions: expected,
		ActualSessions:   series.Len(),
		Percent:          round(pct, 2),
		MarketOpen:       cal.IsOpenOnMinute(af.now()),
	}
}

// -----------------------------------------------------------------------------

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
