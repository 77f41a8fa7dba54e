package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KarimBkr/MyTsango/internal/platform/kafka"
)

// Publisher captures structured audit entries. The store is the durable
// record; the optional Kafka sink fans entries out to downstream consumers
// and is strictly best-effort.
type Publisher struct {
	store  Store
	sink   *kafka.Publisher
	logger *slog.Logger
}

func NewPublisher(store Store, sink *kafka.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, sink: sink, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}

	if p.sink != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			p.logger.Warn("marshal audit entry for fanout", "error", err)
			return nil
		}
		p.sink.PublishAsync(ctx, string(entry.Action), payload)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, userID string) ([]Entry, error) {
	return p.store.ListByUser(ctx, userID)
}
