package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
)

const (
	SourceName = "yahoo"
	chartURL   = "https://query1.finance.yahoo.com/v8/finance/chart/%s"
)

type YahooFinanceSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	BaseURL string
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
		BaseURL: chartURL,
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

// FetchSeries downloads daily bars for [start, end).
func (s *YahooFinanceSource) FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error) {
	params := map[string]string{
		"period1":        strconv.FormatInt(start.Unix(), 10),
		"period2":        strconv.FormatInt(end.Unix(), 10),
		"interval":       "1d",
		"events":         "history",
		"includePrePost": "false",
	}

	series := &models.MPriceSeries{
		Ticker:    ticker,
		Source:    SourceName,
		FetchedAt: time.Now().UTC(),
	}

	respBytes, err := s.Network.Get(ctx, fmt.Sprintf(s.BaseURL, url.PathEscape(ticker)), params)
	if err != nil {
		if errors.Is(err, helpers.ErrNotFound) {
			s.Logger.Info("Yahoo has no chart for %s", ticker)
			return series, nil
		}
		return nil, helpers.NewDataSourceError(fmt.Sprintf("yahoo fetch %s", ticker), err)
	}

	bars, err := s.parseChartResponse(ticker, respBytes)
	if err != nil {
		return nil, helpers.NewDataSourceError(fmt.Sprintf("yahoo parse %s", ticker), err)
	}

	// period2 is inclusive on Yahoo's side for some exchanges
	bars = clipRange(bars, start, end)
	series.Bars = bars

	if len(bars) > 0 {
		s.Logger.Info("Fetched %s: %d daily bars [%s -> %s]", ticker, len(bars),
			bars[0].Date.Format(models.DateLayout), bars[len(bars)-1].Date.Format(models.DateLayout))
	}
	return series, nil
}

// -----------------------------------------------------------------------------

type quoteArrays struct {
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				InstrumentType       string  `json:"instrumentType"`
				Gmtoffset            int     `json:"gmtoffset"`
				Timezone             string  `json:"timezone"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				DataGranularity      string  `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []quoteArrays `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// parseChartResponse turns a v8 chart payload into date-ordered bars.
// Rows with null or non-positive prices are skipped; duplicate dates keep the last row.
func (s *YahooFinanceSource) parseChartResponse(ticker string, data []byte) ([]models.MPriceBar, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s: mismatched array lengths", ticker)
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.Gmtoffset)

	byDate := make(map[time.Time]models.MPriceBar, n)
	for i, ts := range result.Timestamp {
		open, high, low, closeVal, volume := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i], quote.Volume[i]
		if open == nil || high == nil || low == nil || closeVal == nil || volume == nil {
			s.Logger.Debug("Null OHLCV for %s at index %d", ticker, i)
			continue
		}
		if *closeVal <= 0 || *volume < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f, volume=%f", ticker, *closeVal, *volume)
			continue
		}

		local := time.Unix(ts, 0).In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		byDate[date] = models.MPriceBar{
			Date:   date,
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closeVal,
			Volume: *volume,
		}
	}

	bars := make([]models.MPriceBar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, nil
}

// -----------------------------------------------------------------------------

func exchangeLocation(name string, gmtoffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtoffset)
}

// -----------------------------------------------------------------------------

// clipRange keeps bars with start <= date < end, comparing calendar dates.
func clipRange(bars []models.MPriceBar, start, end time.Time) []models.MPriceBar {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	out := bars[:0]
	for _, b := range bars {
		if !b.Date.Before(from) && b.Date.Before(to) {
			out = append(out, b)
		}
	}
	return out
}
