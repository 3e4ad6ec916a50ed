package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"stock-insight/src/helpers"
)

var (
	identRegex  = regexp.MustCompile(`^\w+$`)
	tickerRefRx = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)
)

// -----------------------------------------------------------------------------

// ParseTickerRef splits a schema.table.field reference. Plain tickers such as
// "AAPL" or "BRK.B" return ok=false.
func ParseTickerRef(s string) (schema, table, field string, ok bool) {
	m := tickerRefRx.FindStringSubmatch(s)
	if len(m) != 4 {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// -----------------------------------------------------------------------------

// ExpandTickerRefs replaces every schema.table.field entry with the tickers
// stored in that column. Plain tickers pass through. Duplicates are dropped.
func (d *PostgresDB) ExpandTickerRefs(ctx context.Context, raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	add := func(t string) {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	for _, sym := range raw {
		schema, table, field, ok := ParseTickerRef(sym)
		if !ok {
			add(sym)
			continue
		}
		loaded, err := d.TickersFromTable(ctx, schema, table, field)
		if err != nil {
			return out, fmt.Errorf("failed to load tickers from %s: %w", sym, err)
		}
		d.Logger.Info("Loaded %d tickers from %s", len(loaded), sym)
		for _, t := range loaded {
			add(t)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) TickersFromTable(ctx context.Context, schema, table, field string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s.Valid && s.String != "" {
			tickers = append(tickers, s.String)
		}
	}
	return tickers, rows.Err()
}

// -----------------------------------------------------------------------------

// touchTicker bumps the per-ticker counter inside the journal transaction.
func (d *PostgresDB) touchTicker(ctx context.Context, tx *sql.Tx, ticker string, at int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s AS t (ticker, analyses, first_seen, last_analyzed)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (ticker) DO UPDATE SET
			analyses = t.analyses + 1,
			last_analyzed = GREATEST(t.last_analyzed, EXCLUDED.last_analyzed)
	`, d.table("tickers"))
	if _, err := tx.ExecContext(ctx, query, ticker, at); err != nil {
		return helpers.NewDatabaseError(describe("upsert ticker", ticker), err)
	}
	return nil
}
