package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l.With(String("task", "ingest")).Info("cycle done",
		Int("done", 6),
		Float64("price", 175.25),
		Error(errors.New("boom")),
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "cycle done", line["message"])
	assert.Equal(t, "ingest", line["task"])
	assert.Equal(t, 6.0, line["done"])
	assert.Equal(t, 175.25, line["price"])
	assert.Equal(t, "boom", line["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	logs   [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.logs = append(p.logs, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	child := l.With(String("component", "quotes"))
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("provider down", String("symbol", "AAPL"))
	}
	child.Error("provider down", String("symbol", "TSLA"))
	assert.Equal(t, 2, l.sink.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.logs, 1)
	assert.Equal(t, "logs", pub.topics[0])
	counts := map[string]int{}
	for _, e := range pub.logs[0] {
		counts[e.Fields["symbol"].(string)] = e.Count
	}
	assert.Equal(t, map[string]int{"AAPL": 3, "TSLA": 1}, counts)
}
