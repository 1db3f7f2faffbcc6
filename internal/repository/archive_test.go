package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	pkgkafka "MarketPulse/pkg/kafka"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type fakeExec struct {
	calls []execCall
	err   error
}

func (f *fakeExec) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{q, args})
	return nil, f.err
}

func (f *fakeExec) PingContext(context.Context) error { return f.err }

func TestArchiveInitCreatesTables(t *testing.T) {
	db := &fakeExec{}
	require.NoError(t, NewClickHouseArchive(db, "mp", nil).Init(context.Background()))
	require.Len(t, db.calls, 4)
	assert.Contains(t, db.calls[0].query, "CREATE DATABASE IF NOT EXISTS mp")
	assert.Contains(t, db.calls[3].query, "mp.prediction_outcomes")
}

func TestArchiveStoreBarsChunks(t *testing.T) {
	db := &fakeExec{}
	a := NewClickHouseArchive(db, "mp", nil)

	bars := make([]models.Bar, insertChunk+1)
	for i := range bars {
		bars[i] = models.Bar{ID: int64(i + 1), AssetID: 1, Timestamp: t0, Close: 1}
	}
	require.NoError(t, a.StoreBars(context.Background(), bars))

	require.Len(t, db.calls, 2)
	assert.True(t, strings.HasPrefix(db.calls[0].query, "INSERT INTO mp.bars (id, asset_id, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?), "))
	assert.Len(t, db.calls[0].args, insertChunk*8)
	assert.Len(t, db.calls[1].args, 8)
	assert.Equal(t, int64(insertChunk+1), db.calls[1].args[0])
}

func TestArchiveStoreOutcomeUsesResolvedAt(t *testing.T) {
	db := &fakeExec{}
	resolved := t0.Add(time.Minute)
	p := models.Prediction{TraceID: uuid.New(), ID: 3, AssetID: 2, Timestamp: t0, Outcome: models.OutcomeFailure, ResolvedAt: &resolved}

	require.NoError(t, NewClickHouseArchive(db, "mp", nil).StoreOutcomes(context.Background(), []models.Prediction{p}))
	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	assert.Equal(t, "FAILURE", args[3])
	assert.Equal(t, resolved, args[5])
}

func TestArchiveEmptyAndErrors(t *testing.T) {
	db := &fakeExec{err: errors.New("connection refused")}
	a := NewClickHouseArchive(db, "mp", nil)

	assert.NoError(t, a.StorePredictions(context.Background(), nil))
	assert.Empty(t, db.calls)

	err := a.StorePredictions(context.Background(), []models.Prediction{{ID: 1}})
	assert.ErrorContains(t, err, "insert predictions")
	assert.Error(t, a.Health(context.Background()))
}

type fakeBatchWriter struct {
	topics []string
	msgs   [][]pkgkafka.Message
	closed bool
}

func (f *fakeBatchWriter) PublishBatch(_ context.Context, topic string, m []pkgkafka.Message) error {
	f.topics = append(f.topics, topic)
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeBatchWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherTopicsAndKeys(t *testing.T) {
	w := &fakeBatchWriter{}
	p := NewKafkaPublisher(w, Topics{Bars: "bars", Predictions: "preds", Outcomes: "outcomes"})
	trace := uuid.New()

	require.NoError(t, p.PublishBars(context.Background(), []models.Bar{{AssetID: 42}}))
	require.NoError(t, p.PublishPredictions(context.Background(), []models.Prediction{{TraceID: trace}}))
	require.NoError(t, p.PublishOutcomes(context.Background(), []models.Prediction{{TraceID: trace, Outcome: models.OutcomeSuccess}}))
	require.NoError(t, p.Close())

	assert.Equal(t, []string{"bars", "preds", "outcomes"}, w.topics)
	assert.Equal(t, []byte("42"), w.msgs[0][0].Key)
	assert.Equal(t, []byte(trace.String()), w.msgs[1][0].Key)
	assert.True(t, w.closed)
}
