package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type EmailProducer struct {
	writer *kafka.Writer
}

func NewEmailProducer(brokers []string, topic string) *EmailProducer {
	return &EmailProducer{writer: newWriter(brokers, topic)}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

func (p *EmailProducer) SendEmail(ctx context.Context, key string, msg EmailMessage) error {
	return writeJSON(ctx, p.writer, key, msg)
}

func (p *EmailProducer) Close() error {
	return p.writer.Close()
}

// EventProducer публикует доменные события заказов/платежей, ключ: id заказа.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{writer: newWriter(brokers, topic)}
}

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func (p *EventProducer) Publish(ctx context.Context, key string, ev Event) error {
	return writeJSON(ctx, p.writer, key, ev)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}

func writeJSON(ctx context.Context, w *kafka.Writer, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}
