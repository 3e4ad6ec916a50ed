package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"
)

const SourceName = "csv"

// CSVSource reads <dir>/<TICKER>.csv files with a Date,Open,High,Low,Close,Volume header.
type CSVSource struct {
	Dir    string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewCSVSource(dir string, log *logger.Logger) *CSVSource {
	return &CSVSource{Dir: dir, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

// FetchSeries loads the ticker's file and keeps rows in [start, end).
// A missing file is an empty series.
func (s *CSVSource) FetchSeries(ctx context.Context, ticker string, start, end time.Time) (*models.MPriceSeries, error) {
	series := &models.MPriceSeries{
		Ticker:    ticker,
		Source:    SourceName,
		FetchedAt: time.Now().UTC(),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.Dir, strings.ToUpper(filepath.Base(ticker))+".csv")
	records, err := readCsvFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.Logger.Debug("No csv file for %s at %s", ticker, path)
			return series, nil
		}
		return nil, helpers.NewDataSourceError(fmt.Sprintf("read %s", path), err)
	}
	if len(records) < 2 {
		return series, nil
	}

	idx, err := headerIndex(records[0])
	if err != nil {
		return nil, helpers.NewDataSourceError(path, err)
	}

	byDate := make(map[time.Time]models.MPriceBar, len(records)-1)
	for lineNo, line := range records[1:] {
		bar, err := parseRow(line, idx)
		if err != nil {
			s.Logger.Debug("Skipping %s line %d: %v", path, lineNo+2, err)
			continue
		}
		if bar.Date.Before(start) || !bar.Date.Before(end) {
			continue
		}
		byDate[bar.Date] = bar
	}

	for _, b := range byDate {
		series.Bars = append(series.Bars, b)
	}
	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})
	return series, nil
}

// -----------------------------------------------------------------------------

var requiredColumns = []string{"date", "open", "high", "low", "close", "volume"}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return idx, nil
}

// -----------------------------------------------------------------------------

func parseRow(line []string, idx map[string]int) (models.MPriceBar, error) {
	var bar models.MPriceBar
	field := func(col string) string {
		i := idx[col]
		if i >= len(line) {
			return ""
		}
		return strings.TrimSpace(line[i])
	}

	date, err := time.Parse(models.DateLayout, field("date"))
	if err != nil {
		return bar, err
	}
	bar.Date = date

	values := make([]float64, 5)
	for i, col := range requiredColumns[1:] {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", col, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return bar, fmt.Errorf("%s: non-finite value %q", col, field(col))
		}
		values[i] = v
	}
	bar.Open, bar.High, bar.Low, bar.Close, bar.Volume = values[0], values[1], values[2], values[3], values[4]
	if bar.Close <= 0 || bar.Volume < 0 {
		return bar, fmt.Errorf("invalid close %f or volume %f", bar.Close, bar.Volume)
	}
	return bar, nil
}

// -----------------------------------------------------------------------------

func readCsvFile(filePath string) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	csvReader.FieldsPerRecord = -1
	return csvReader.ReadAll()
}
