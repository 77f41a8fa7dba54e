package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/KarimBkr/MyTsango/internal/platform/config"
)

// Publisher produces records to Kafka. It is a best-effort sink: callers that
// must not block on the broker use PublishAsync and treat failures as
// log-only events.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists.
// Returns nil if no brokers are configured (Kafka fanout disabled).
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.AuditTopic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: cfg.AuditTopic, logger: logger}, nil
}

// ensureTopic creates the topic if it does not exist yet. Existing topics are
// left untouched.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// PublishAsync produces a single record without waiting for the broker.
// Delivery failures are logged, never returned; the audit store remains the
// durable record either way.
func (p *Publisher) PublishAsync(ctx context.Context, key string, value []byte) {
	if p == nil {
		return
	}
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: value}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("kafka produce failed",
				"topic", r.Topic,
				"key", string(r.Key),
				"error", err,
			)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.client.Flush(context.Background())
	p.client.Close()
}
