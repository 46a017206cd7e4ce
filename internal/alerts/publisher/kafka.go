package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"sojourn/internal/alerts/models"
)

// Kafka produces one record per alert, keyed by person so a person's alerts
// stay ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects a producer to brokers. The connection is lazy; call Ping
// to fail fast at startup.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

// Ping checks that at least one broker is reachable.
func (p *Kafka) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("ping kafka: %w", err)
	}
	return nil
}

// Publish blocks until the record is acknowledged.
func (p *Kafka) Publish(ctx context.Context, alert models.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(alert.PersonID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "risk_tier", Value: []byte(alert.RiskTier)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce alert to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Kafka) Close() {
	p.client.Close()
}
