package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// insertChunk bounds the rows sent in one INSERT statement.
const insertChunk = 2000

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// ClickHouseArchive keeps an append-only analytical copy of bars,
// predictions and outcomes. The memory store stays authoritative.
type ClickHouseArchive struct {
	db       sqlExecer
	database string
	l        *applogger.Logger
}

var _ domrepo.Archive = (*ClickHouseArchive)(nil)

func NewClickHouseArchive(db sqlExecer, database string, l *applogger.Logger) *ClickHouseArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseArchive{db: db, database: database, l: l}
}

// ArchiveSchema returns the DDL for the archive tables.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars (
			id Int64, asset_id Int64, ts DateTime64(3, 'UTC'),
			open Float64, high Float64, low Float64, close Float64, volume Int64
		) ENGINE = ReplacingMergeTree ORDER BY (asset_id, ts, id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
			trace_id UUID, id Int64, asset_id Int64, ts DateTime64(3, 'UTC'),
			direction LowCardinality(String), confidence Float64, entry_point Float64,
			rsi Nullable(Float64), macd Nullable(Float64), sma20 Nullable(Float64), ema12 Nullable(Float64),
			patterns Array(String), votes_bullish UInt16, votes_bearish UInt16
		) ENGINE = ReplacingMergeTree ORDER BY (asset_id, ts, trace_id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.prediction_outcomes (
			trace_id UUID, id Int64, asset_id Int64, outcome LowCardinality(String),
			entry_point Float64, resolved_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree ORDER BY (asset_id, resolved_at, trace_id)`, database),
	}
}

func (s *ClickHouseArchive) Init(ctx context.Context) error {
	for _, stmt := range ArchiveSchema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse init: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseArchive) StoreBars(ctx context.Context, bars []models.Bar) error {
	cols := []string{"id", "asset_id", "ts", "open", "high", "low", "close", "volume"}
	return insertRows(ctx, s, "bars", cols, len(bars), func(i int) []any {
		b := bars[i]
		return []any{b.ID, b.AssetID, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume}
	})
}

func (s *ClickHouseArchive) StorePredictions(ctx context.Context, preds []models.Prediction) error {
	cols := []string{"trace_id", "id", "asset_id", "ts", "direction", "confidence", "entry_point",
		"rsi", "macd", "sma20", "ema12", "patterns", "votes_bullish", "votes_bearish"}
	return insertRows(ctx, s, "predictions", cols, len(preds), func(i int) []any {
		p := preds[i]
		patterns := make([]string, len(p.Technical.Patterns))
		for j, pt := range p.Technical.Patterns {
			patterns[j] = string(pt)
		}
		return []any{
			p.TraceID, p.ID, p.AssetID, p.Timestamp, string(p.Direction), p.Confidence, p.EntryPoint,
			p.Technical.RSI, p.Technical.MACD, p.Technical.SMA20, p.Technical.EMA12,
			patterns, uint16(p.Technical.Votes.Bullish), uint16(p.Technical.Votes.Bearish),
		}
	})
}

func (s *ClickHouseArchive) StoreOutcomes(ctx context.Context, preds []models.Prediction) error {
	cols := []string{"trace_id", "id", "asset_id", "outcome", "entry_point", "resolved_at"}
	return insertRows(ctx, s, "prediction_outcomes", cols, len(preds), func(i int) []any {
		p := preds[i]
		resolved := p.Timestamp
		if p.ResolvedAt != nil {
			resolved = *p.ResolvedAt
		}
		return []any{p.TraceID, p.ID, p.AssetID, string(p.Outcome), p.EntryPoint, resolved}
	})
}

func (s *ClickHouseArchive) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseArchive) Close() error { return nil }

// insertRows writes n rows as multi-row VALUES inserts, chunked.
func insertRows(ctx context.Context, s *ClickHouseArchive, table string, cols []string, n int, row func(int) []any) error {
	if n == 0 {
		return nil
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES ", s.database, table, strings.Join(cols, ", "))

	for start := 0; start < n; start += insertChunk {
		end := min(start+insertChunk, n)
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			values = append(values, placeholder)
			args = append(args, row(i)...)
		}
		if _, err := s.db.ExecContext(ctx, prefix+strings.Join(values, ", "), args...); err != nil {
			s.l.Error("clickhouse insert failed",
				applogger.String("table", table),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
