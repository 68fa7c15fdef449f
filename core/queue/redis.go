package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldBody       = "body"
	attributePrefix = "attr:"
)

// RedisStreamOptions configures the consumer side of a RedisStream.
type RedisStreamOptions struct {
	Group      string
	Consumer   string
	Wait       time.Duration
	Visibility time.Duration
}

// RedisStream is a queue backed by a Redis stream and consumer group.
// Received entries stay pending until Delete acknowledges and removes them;
// pending entries idle longer than Visibility are claimed again by Receive.
type RedisStream struct {
	client redis.Cmdable
	stream string
	opts   RedisStreamOptions

	mu          sync.Mutex
	groupExists bool
}

// NewRedisStream creates a stream queue. Sending only needs the stream name.
func NewRedisStream(client redis.Cmdable, stream string, opts RedisStreamOptions) *RedisStream {
	return &RedisStream{client: client, stream: stream, opts: opts}
}

// Send appends an entry to the stream.
func (q *RedisStream) Send(ctx context.Context, attributes map[string]string, body []byte) (string, error) {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: EncodeValues(attributes, body),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add message to stream %s: %w", q.stream, err)
	}
	return id, nil
}

// Receive reclaims retained entries first, then reads new ones.
func (q *RedisStream) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 10
	}
	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}

	var out []Message

	if q.opts.Visibility > 0 {
		claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.stream,
			Group:    q.opts.Group,
			Consumer: q.opts.Consumer,
			MinIdle:  q.opts.Visibility,
			Start:    "0-0",
			Count:    int64(max),
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to claim pending messages on %s: %w", q.stream, err)
		}
		for _, m := range claimed {
			out = append(out, DecodeMessage(m))
		}
		if len(out) >= max {
			return out, nil
		}
	}

	// go-redis treats Block 0 as "wait forever"; a negative value omits BLOCK.
	block := q.opts.Wait
	if block <= 0 {
		block = -1
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.opts.Group,
		Consumer: q.opts.Consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(max - len(out)),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to read from stream %s: %w", q.stream, err)
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, DecodeMessage(m))
		}
	}
	return out, nil
}

// Delete acknowledges the entry and removes it from the stream.
func (q *RedisStream) Delete(ctx context.Context, id string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAck(ctx, q.stream, q.opts.Group, id)
		p.XDel(ctx, q.stream, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s from %s: %w", id, q.stream, err)
	}
	return nil
}

// Close is a no-op; the shared Redis client is closed by its owner.
func (q *RedisStream) Close() error {
	return nil
}

func (q *RedisStream) ensureGroup(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.groupExists {
		return nil
	}
	if q.opts.Group == "" || q.opts.Consumer == "" {
		return fmt.Errorf("stream %s has no consumer group configured", q.stream)
	}

	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", q.opts.Group, err)
	}
	q.groupExists = true
	return nil
}

// EncodeValues flattens attributes and body into stream entry fields.
func EncodeValues(attributes map[string]string, body []byte) map[string]any {
	values := make(map[string]any, len(attributes)+1)
	for k, v := range attributes {
		values[attributePrefix+k] = v
	}
	values[fieldBody] = string(body)
	return values
}

// DecodeMessage rebuilds a Message from a stream entry.
func DecodeMessage(m redis.XMessage) Message {
	msg := Message{ID: m.ID, Attributes: make(map[string]string)}
	for k, v := range m.Values {
		s := fmt.Sprint(v)
		if k == fieldBody {
			msg.Body = s
			continue
		}
		if name, ok := strings.CutPrefix(k, attributePrefix); ok {
			msg.Attributes[name] = s
		}
	}
	return msg
}
