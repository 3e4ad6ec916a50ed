package storage

import (
	"database/sql"
	"fmt"
	"time"

	"stock-insight/src/helpers"
	"stock-insight/src/interfaces"
	"stock-insight/src/logger"
	"stock-insight/src/models"
)

// Columns shared by both backends, in scan order.
const recordColumns = `id, session_id, ticker, start_date, end_date, source, origin, trend, risk, insight,
	trend_change_pct, volatility_pct, row_count, last_close, created_at`

// -----------------------------------------------------------------------------

// NewDatabase picks the backend named by storage.db_type. The returned
// database still needs Initialize.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, log.Named("postgres"))
	case "none":
		return NewNoopDB(), nil
	default:
		return NewAsyncSQLiteDB(cfg, log.Named("sqlite"))
	}
}

// -----------------------------------------------------------------------------

func recordArgs(r models.MAnalysisRecord) []interface{} {
	return []interface{}{
		r.ID, r.SessionID, r.Ticker, r.Start, r.End, r.Source, r.Origin, r.Trend, r.Risk, r.Insight,
		r.TrendChangePercent, r.VolatilityPercent, r.Rows, r.LastClose, r.CreatedAt.UTC().Unix(),
	}
}

// -----------------------------------------------------------------------------

func scanRecords(rows *sql.Rows) ([]models.MAnalysisRecord, error) {
	defer rows.Close()

	out := make([]models.MAnalysisRecord, 0)
	for rows.Next() {
		var r models.MAnalysisRecord
		var created int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Ticker, &r.Start, &r.End, &r.Source, &r.Origin,
			&r.Trend, &r.Risk, &r.Insight, &r.TrendChangePercent, &r.VolatilityPercent,
			&r.Rows, &r.LastClose, &created); err != nil {
			return nil, helpers.NewDatabaseError("scan analysis", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate analyses", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func scanTickers(rows *sql.Rows) ([]models.MTickerSummary, error) {
	defer rows.Close()

	out := make([]models.MTickerSummary, 0)
	for rows.Next() {
		var s models.MTickerSummary
		var first, last int64
		if err := rows.Scan(&s.Ticker, &s.Analyses, &first, &last); err != nil {
			return nil, helpers.NewDatabaseError("scan ticker", err)
		}
		s.FirstSeen = time.Unix(first, 0).UTC()
		s.LastAnalyzed = time.Unix(last, 0).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate tickers", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func retentionCutoff(days int) int64 {
	return time.Now().UTC().AddDate(0, 0, -days).Unix()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func describe(op string, ticker string) string {
	if ticker == "" {
		return op
	}
	return fmt.Sprintf("%s %s", op, ticker)
}
