package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"order-service/internal/notification/sender"
	"order-service/internal/producer"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EmailSender interface {
	SendEmail(n sender.EmailNotification) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaEmailConsumer struct {
	reader      MessageReader
	emailSender EmailSender
	log         *zap.Logger
}

func NewKafkaEmailConsumer(brokers []string, groupID, topic string, emailSender EmailSender, log *zap.Logger) *KafkaEmailConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return NewWithReader(r, emailSender, log)
}

func NewWithReader(r MessageReader, emailSender EmailSender, log *zap.Logger) *KafkaEmailConsumer {
	return &KafkaEmailConsumer{reader: r, emailSender: emailSender, log: log}
}

func (c *KafkaEmailConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		c.handle(m)
	}
}

func (c *KafkaEmailConsumer) handle(m kafka.Message) {
	var em producer.EmailMessage
	dec := json.NewDecoder(bytes.NewReader(m.Value))
	// суммы в VND не должны превращаться в 1.5e+06
	dec.UseNumber()
	if err := dec.Decode(&em); err != nil {
		c.log.Error("unmarshal email message", zap.ByteString("value", m.Value), zap.Error(err))
		return
	}
	if em.To == "" || em.Template == "" {
		c.log.Warn("invalid email message", zap.String("key", string(m.Key)))
		return
	}
	err := c.emailSender.SendEmail(sender.EmailNotification{To: em.To, Subject: em.Subject, Template: em.Template, Data: em.Data})
	if err != nil {
		c.log.Error("send email failed", zap.String("to", em.To), zap.String("template", em.Template), zap.Error(err))
		return
	}
	c.log.Info("email sent", zap.String("to", em.To), zap.String("template", em.Template))
}

func (c *KafkaEmailConsumer) Close() error { return c.reader.Close() }
