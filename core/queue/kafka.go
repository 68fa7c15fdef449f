package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// HeaderMessageID carries the generated message identifier on Kafka records.
const HeaderMessageID = "MessageID"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes submission messages to a Kafka topic.
// Attributes travel as record headers; PackageID is the record key.
type KafkaSender struct {
	writer messageWriter
	topic  string
}

// NewKafkaSender creates a synchronous writer that waits for all replicas.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaSender{writer: writer, topic: topic}
}

// Send writes one record and returns the generated message id.
func (k *KafkaSender) Send(ctx context.Context, attributes map[string]string, body []byte) (string, error) {
	id := uuid.NewString()

	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]kafka.Header, 0, len(names)+1)
	headers = append(headers, kafka.Header{Key: HeaderMessageID, Value: []byte(id)})
	for _, name := range names {
		headers = append(headers, kafka.Header{Key: name, Value: []byte(attributes[name])})
	}

	msg := kafka.Message{
		Key:     []byte(attributes["PackageID"]),
		Value:   body,
		Headers: headers,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to write message to topic %s: %w", k.topic, err)
	}
	return id, nil
}

// Close flushes and closes the writer.
func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
