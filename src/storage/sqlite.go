package storage

import (
	"context"
	"database/sql"
	"fmt"

	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// single writer keeps modernc from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(ctx); err != nil {
		return err
	}
	d.Logger.Info("SQLite journal ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			ticker TEXT NOT NULL,
			start_date TEXT,
			end_date TEXT,
			source TEXT,
			origin TEXT,
			trend TEXT,
			risk TEXT,
			insight TEXT,
			trend_change_pct REAL,
			volatility_pct REAL,
			row_count INTEGER,
			last_close REAL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ticker_created ON analyses (ticker, created_at);`,
		`CREATE TABLE IF NOT EXISTS tickers (
			ticker TEXT PRIMARY KEY,
			analyses INTEGER NOT NULL DEFAULT 0,
			first_seen INTEGER NOT NULL,
			last_analyzed INTEGER NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := d.DB.ExecContext(ctx, q); err != nil {
			return helpers.NewDatabaseError("create sqlite tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveAnalysis(ctx context.Context, record models.MAnalysisRecord) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO analyses (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, recordColumns))
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, recordArgs(record)...); err != nil {
		return helpers.NewDatabaseError(describe("insert analysis", record.Ticker), err)
	}

	at := record.CreatedAt.UTC().Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tickers (ticker, analyses, first_seen, last_analyzed)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			analyses = analyses + 1,
			last_analyzed = MAX(last_analyzed, excluded.last_analyzed)
	`, record.Ticker, at, at); err != nil {
		return helpers.NewDatabaseError(describe("upsert ticker", record.Ticker), err)
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentAnalyses(ctx context.Context, ticker string, limit int) ([]models.MAnalysisRecord, error) {
	var rows *sql.Rows
	var err error

	if ticker == "" {
		rows, err = d.DB.QueryContext(ctx, fmt.Sprintf(
			`SELECT %s FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`, recordColumns),
			clampLimit(limit))
	} else {
		rows, err = d.DB.QueryContext(ctx, fmt.Sprintf(
			`SELECT %s FROM analyses WHERE ticker = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, recordColumns),
			ticker, clampLimit(limit))
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(describe("query analyses", ticker), err)
	}
	return scanRecords(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ListTickers(ctx context.Context) ([]models.MTickerSummary, error) {
	rows, err := d.DB.QueryContext(ctx,
		`SELECT ticker, analyses, first_seen, last_analyzed FROM tickers ORDER BY last_analyzed DESC, ticker`)
	if err != nil {
		return nil, helpers.NewDatabaseError("query tickers", err)
	}
	return scanTickers(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := retentionCutoff(retentionDays)

	d.Logger.Info("Cleaning up analyses older than %d days (created_at < %d)", retentionDays, cutoff)

	res, err := d.DB.ExecContext(ctx, "DELETE FROM analyses WHERE created_at < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup analyses", err)
	}
	if _, err := d.DB.ExecContext(ctx, "DELETE FROM tickers WHERE last_analyzed < ?", cutoff); err != nil {
		return helpers.NewDatabaseError("cleanup tickers", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed, %d analyses removed", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
