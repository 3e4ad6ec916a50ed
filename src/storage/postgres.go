package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stock-insight/src/helpers"
	"stock-insight/src/logger"
	"stock-insight/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB uses storage.schema, or the executable name when unset.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := cfg.Storage.Schema
	if name == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name = filepath.Base(exe)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if !identRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid postgres schema name %q", name)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}
	d.DB = db

	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}
	if err := d.createTables(ctx); err != nil {
		return err
	}

	// Watchlist entries may point at a column of tickers in another table.
	expanded, err := d.ExpandTickerRefs(ctx, d.Config.Watchlist.Symbols)
	if err != nil {
		d.Logger.Error("Failed to expand watchlist references: %v", err)
	} else {
		d.Config.Watchlist.Symbols = expanded
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
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
				trend_change_pct DOUBLE PRECISION,
				volatility_pct DOUBLE PRECISION,
				row_count INTEGER,
				last_close DOUBLE PRECISION,
				created_at BIGINT NOT NULL
			);
		`, d.table("analyses")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_analyses_ticker_created ON %s (ticker, created_at);`, d.table("analyses")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ticker TEXT PRIMARY KEY,
				analyses INTEGER NOT NULL DEFAULT 0,
				first_seen BIGINT NOT NULL,
				last_analyzed BIGINT NOT NULL
			);
		`, d.table("tickers")),
	}
	for _, q := range stmts {
		if _, err := d.DB.ExecContext(ctx, q); err != nil {
			return helpers.NewDatabaseError("create postgres tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAnalysis(ctx context.Context, record models.MAnalysisRecord) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, d.table("analyses"), recordColumns))
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, recordArgs(record)...); err != nil {
		return helpers.NewDatabaseError(describe("insert analysis", record.Ticker), err)
	}

	if err := d.touchTicker(ctx, tx, record.Ticker, record.CreatedAt.UTC().Unix()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentAnalyses(ctx context.Context, ticker string, limit int) ([]models.MAnalysisRecord, error) {
	var rows *sql.Rows
	var err error

	if ticker == "" {
		rows, err = d.DB.QueryContext(ctx, fmt.Sprintf(
			`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1`, recordColumns, d.table("analyses")),
			clampLimit(limit))
	} else {
		rows, err = d.DB.QueryContext(ctx, fmt.Sprintf(
			`SELECT %s FROM %s WHERE ticker = $1 ORDER BY created_at DESC LIMIT $2`, recordColumns, d.table("analyses")),
			ticker, clampLimit(limit))
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(describe("query analyses", ticker), err)
	}
	return scanRecords(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListTickers(ctx context.Context) ([]models.MTickerSummary, error) {
	rows, err := d.DB.QueryContext(ctx, fmt.Sprintf(
		`SELECT ticker, analyses, first_seen, last_analyzed FROM %s ORDER BY last_analyzed DESC, ticker`,
		d.table("tickers")))
	if err != nil {
		return nil, helpers.NewDatabaseError("query tickers", err)
	}
	return scanTickers(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := retentionCutoff(retentionDays)

	d.Logger.Info("Cleaning up analyses older than %d days (created_at < %d)", retentionDays, cutoff)

	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table("analyses")), cutoff); err != nil {
		return helpers.NewDatabaseError("cleanup analyses", err)
	}
	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE last_analyzed < $1`, d.table("tickers")), cutoff); err != nil {
		return helpers.NewDatabaseError("cleanup tickers", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
