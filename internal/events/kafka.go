package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message is one serialized event ready for the broker.
type Message struct {
	Key   string
	Type  string
	Value []byte
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages to one topic, keyed by order id so the
// events of an order stay in one partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, len(msgs))
	now := time.Now().UTC()
	for i, m := range msgs {
		out[i] = kafka.Message{
			Key:     []byte(m.Key),
			Value:   m.Value,
			Time:    now,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(m.Type)}},
		}
	}
	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(out), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
