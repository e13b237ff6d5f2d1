package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"order-service/internal/notification/sender"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

type fakeSender struct {
	got []sender.EmailNotification
	err error
}

func (s *fakeSender) SendEmail(n sender.EmailNotification) error {
	s.got = append(s.got, n)
	return s.err
}

func TestRun_DeliversValidMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		{Value: []byte(`{"to":"a@example.com","subject":"s","template":"order_confirmation","data":{"total_price":1500000}}`)},
		{Value: []byte(`not json`)},
		{Value: []byte(`{"to":"","template":"order_confirmation"}`)},
	}}
	s := &fakeSender{}

	if err := NewWithReader(r, s, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(s.got) != 1 {
		t.Fatalf("expected 1 delivered email, got %d", len(s.got))
	}
	if n, ok := s.got[0].Data["total_price"].(json.Number); !ok || n.String() != "1500000" {
		t.Fatalf("amount should stay an exact number, got %#v", s.got[0].Data["total_price"])
	}
}

func TestRun_SendFailureDoesNotStopLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{Value: []byte(`{"to":"a@example.com","template":"t"}`)}
	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{msg, msg}}
	s := &fakeSender{err: errors.New("smtp down")}

	if err := NewWithReader(r, s, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(s.got) != 2 {
		t.Fatalf("expected both messages attempted, got %d", len(s.got))
	}
}
