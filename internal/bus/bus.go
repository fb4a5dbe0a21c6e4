// Package bus wraps Redis Streams as the Observation Bus (spec §4.4):
// append-only per-topic streams with consumer-group reads, at-least-once
// delivery, length-bounded with oldest-drop.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bus is the Redis-backed Observation Bus.
type Bus struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

// Message is one delivered bus entry: its stream-assigned id and fields.
type Message struct {
	Topic  string
	ID     string
	Fields map[string]string
}

// Write appends fields to topic, trimming the stream to maxLen with
// oldest-drop (approximate trim, matching Redis's recommended MAXLEN ~ form
// for throughput).
func (b *Bus) Write(ctx context.Context, topic string, fields map[string]interface{}, maxLen int64) (string, error) {
	id, err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: maxLen,
		Approx: true,
		Values: fields,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("write %s: %w", topic, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group on topic if it does not already
// exist (§4.4: "Consumer group fusion-group is created if missing on
// startup"; §7: "Consumer-group missing: create on demand and retry once").
func (b *Bus) EnsureGroup(ctx context.Context, topic, group string) error {
	err := b.rdb.XGroupCreateMkStream(ctx, topic, group, "$").Err()
	if err != nil && !isBusyGroupErr(err) {
		return fmt.Errorf("ensure group %s/%s: %w", topic, group, err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return strings.Contains(err.Error(), "BUSYGROUP")
}

// ReadAll performs a single consumer-group read across every topic,
// returning whatever messages are available up to count per topic within
// blockMS (spec §4.7 step 1: "read_all(topics, group, consumer, count=100,
// block=100 ms)").
func (b *Bus) ReadAll(ctx context.Context, topics []string, group, consumer string, count int64, blockMS int64) ([]Message, error) {
	streams := make([]string, 0, len(topics)*2)
	for _, t := range topics {
		streams = append(streams, t)
	}
	for range topics {
		streams = append(streams, ">")
	}

	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  streams,
		Count:    count,
		Block:    time.Duration(blockMS) * time.Millisecond,
	}
	res, err := b.rdb.XReadGroup(ctx, args).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if retryErr := b.retryMissingGroup(ctx, err, topics, group); retryErr != nil {
			return nil, retryErr
		}
		res, err = b.rdb.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, fmt.Errorf("read all: %w", err)
		}
	}

	var messages []Message
	for _, stream := range res {
		for _, entry := range stream.Messages {
			fields := make(map[string]string, len(entry.Values))
			for k, v := range entry.Values {
				fields[k] = fmt.Sprintf("%v", v)
			}
			messages = append(messages, Message{Topic: stream.Stream, ID: entry.ID, Fields: fields})
		}
	}
	return messages, nil
}

// retryMissingGroup implements the "create on demand" half of the §7
// "create on demand and retry once" policy for a NOGROUP error surfaced
// mid-read (e.g. the stream was recreated by a topic owner restarting);
// ReadAll then retries the read once.
func (b *Bus) retryMissingGroup(ctx context.Context, err error, topics []string, group string) error {
	if !strings.Contains(err.Error(), "NOGROUP") {
		return fmt.Errorf("read all: %w", err)
	}
	for _, topic := range topics {
		if groupErr := b.EnsureGroup(ctx, topic, group); groupErr != nil {
			return groupErr
		}
	}
	return nil
}

// Ack acknowledges processed message ids on topic for group (spec §4.7
// step 6).
func (b *Bus) Ack(ctx context.Context, topic, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.rdb.XAck(ctx, topic, group, ids...).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", topic, err)
	}
	return nil
}
