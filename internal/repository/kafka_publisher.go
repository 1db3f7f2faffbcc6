package repository

import (
	"context"
	"strconv"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

type batchWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// Topics names the Kafka topic per event type.
type Topics struct {
	Bars        string
	Predictions string
	Outcomes    string
}

// KafkaPublisher streams pipeline events as JSON. Bars are keyed by asset,
// predictions and outcomes by trace id.
type KafkaPublisher struct {
	producer batchWriter
	topics   Topics
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer batchWriter, topics Topics) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topics: topics}
}

func (p *KafkaPublisher) PublishBars(ctx context.Context, bars []models.Bar) error {
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{Key: []byte(strconv.FormatInt(b.AssetID, 10)), Value: b}
	}
	return p.producer.PublishBatch(ctx, p.topics.Bars, msgs)
}

func (p *KafkaPublisher) PublishPredictions(ctx context.Context, preds []models.Prediction) error {
	return p.producer.PublishBatch(ctx, p.topics.Predictions, predictionMessages(preds))
}

func (p *KafkaPublisher) PublishOutcomes(ctx context.Context, preds []models.Prediction) error {
	return p.producer.PublishBatch(ctx, p.topics.Outcomes, predictionMessages(preds))
}

func predictionMessages(preds []models.Prediction) []pkgkafka.Message {
	msgs := make([]pkgkafka.Message, len(preds))
	for i, pr := range preds {
		msgs[i] = pkgkafka.Message{Key: []byte(pr.TraceID.String()), Value: pr}
	}
	return msgs
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
