package storage

import (
	"context"

	"stock-insight/src/models"
)

// NoopDB is used when storage.db_type is "none". Nothing is journaled.
type NoopDB struct{}

func NewNoopDB() *NoopDB { return &NoopDB{} }

func (NoopDB) Initialize(ctx context.Context) error { return nil }

func (NoopDB) SaveAnalysis(ctx context.Context, record models.MAnalysisRecord) error { return nil }

func (NoopDB) RecentAnalyses(ctx context.Context, ticker string, limit int) ([]models.MAnalysisRecord, error) {
	return []models.MAnalysisRecord{}, nil
}

func (NoopDB) ListTickers(ctx context.Context) ([]models.MTickerSummary, error) {
	return []models.MTickerSummary{}, nil
}

func (NoopDB) CleanupOldData(ctx context.Context) error { return nil }

func (NoopDB) Close() error { return nil }
