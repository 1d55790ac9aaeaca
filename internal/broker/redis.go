package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// payloadField is the stream entry field carrying the serialized request.
const payloadField = "payload"

// receiveBlock bounds each XREADGROUP call so the consumer can notice
// context cancellation between polls.
const receiveBlock = 5 * time.Second

// RedisBroker implements Publisher and Consumer on a Redis stream with a
// consumer group. Consumer groups give at-least-once delivery: an entry is
// redelivered until acknowledged with XACK.
type RedisBroker struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewRedisBroker creates a broker on the given stream and consumer group.
// The consumer name identifies this process within the group.
func NewRedisBroker(client *redis.Client, stream, group, consumer string) *RedisBroker {
	return &RedisBroker{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (b *RedisBroker) EnsureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %q on stream %q: %w", b.group, b.stream, err)
	}
	return nil
}

// Publish appends the payload to the stream.
func (b *RedisBroker) Publish(ctx context.Context, body []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{payloadField: body},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to stream %q: %w", b.stream, err)
	}
	return nil
}

// Receive blocks until a new entry is delivered to this consumer or ctx is
// cancelled. An entry without the payload field is returned with an empty
// body so the caller can classify and drop it.
func (b *RedisBroker) Receive(ctx context.Context) (*Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    1,
			Block:    receiveBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			// Block window elapsed with no entries.
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read from stream %q: %w", b.stream, err)
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				msg := &Message{ID: entry.ID}
				if raw, ok := entry.Values[payloadField].(string); ok {
					msg.Body = []byte(raw)
				}
				return msg, nil
			}
		}
	}
}

// Ack marks the delivery as processed so the group will not redeliver it.
func (b *RedisBroker) Ack(ctx context.Context, messageID string) error {
	if err := b.client.XAck(ctx, b.stream, b.group, messageID).Err(); err != nil {
		return fmt.Errorf("ack message %s: %w", messageID, err)
	}
	return nil
}

// Ping checks broker connectivity.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
