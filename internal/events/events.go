package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/pkg/money"
)

// EntrySettled is emitted once per ledger entry, after the transaction that
// moved it to a final status has committed.
type EntrySettled struct {
	EntryID            int64     `json:"entry_id"`
	AccountID          int       `json:"account_id"`
	Kind               string    `json:"kind"`
	Amount             string    `json:"amount"`
	AmountMinor        int64     `json:"amount_minor"`
	Currency           string    `json:"currency"`
	Status             string    `json:"status"`
	Reference          string    `json:"reference"`
	ProcessorPaymentID string    `json:"processor_payment_id,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func NewEntrySettled(entry domain.LedgerEntry, occurredAt time.Time) EntrySettled {
	return EntrySettled{
		EntryID:            entry.ID,
		AccountID:          entry.AccountID,
		Kind:               string(entry.Kind),
		Amount:             money.Format(entry.Amount),
		AmountMinor:        entry.Amount,
		Currency:           entry.Currency,
		Status:             string(entry.Status),
		Reference:          entry.Reference,
		ProcessorPaymentID: entry.ProcessorPaymentID,
		OccurredAt:         occurredAt.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event EntrySettled) error
	Close() error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// NewKafkaPublisherWithWriter wraps an already configured writer.
func NewKafkaPublisherWithWriter(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish keys messages by entry reference so all events of one entry land in
// the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event EntrySettled) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("can't encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("EntrySettled")},
		},
	})
	if err != nil {
		zap.L().Error("can't publish event", zap.Int64("entry_id", event.EntryID), zap.Error(err))
		return fmt.Errorf("can't publish event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, EntrySettled) error { return nil }

func (NopPublisher) Close() error { return nil }
