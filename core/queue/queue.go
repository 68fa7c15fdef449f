package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Message is one delivered queue entry.
type Message struct {
	// ID identifies the delivery; it is the handle passed to Delete.
	ID string
	// Attributes carry routing data such as PackageID and BatchID.
	Attributes map[string]string
	// Body is the raw JSON payload.
	Body string
}

// Sender publishes messages to a single queue.
type Sender interface {
	// Send publishes one message and returns its transport identifier.
	Send(ctx context.Context, attributes map[string]string, body []byte) (string, error)
	// Close releases the underlying connection.
	Close() error
}

// Receiver consumes messages from a single queue with explicit deletion.
// A received message that is not deleted is delivered again later.
type Receiver interface {
	// Receive returns up to max messages, waiting a bounded time when none are ready.
	// An empty slice with a nil error means the queue is drained.
	Receive(ctx context.Context, max int) ([]Message, error)
	// Delete removes a message so it is never delivered again.
	Delete(ctx context.Context, id string) error
	// Close releases the underlying connection.
	Close() error
}

// NewRedisClient builds the shared Redis client used by queues and locks.
func NewRedisClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 10,
	})
}

// NewSender builds the submission queue sender for the configured driver.
func NewSender(cfg Config, rdb redis.Cmdable) (Sender, error) {
	switch cfg.Driver {
	case DriverRedis, "":
		return NewRedisStream(rdb, cfg.SubmissionQueue, RedisStreamOptions{}), nil
	case DriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka driver requires at least one broker")
		}
		return NewKafkaSender(cfg.KafkaBrokers, cfg.SubmissionQueue), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", cfg.Driver)
	}
}

// NewResultReceiver builds the result queue consumer.
func NewResultReceiver(cfg Config, rdb redis.Cmdable) Receiver {
	return NewRedisStream(rdb, cfg.ResultQueue, RedisStreamOptions{
		Group:      cfg.ConsumerGroup,
		Consumer:   cfg.ConsumerName,
		Wait:       cfg.Wait(),
		Visibility: cfg.Visibility(),
	})
}
