package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/redis/go-redis/v9"
)

const sessionHistoryTTL = 24 * time.Hour

// RedisSink publishes segments on a pub/sub channel and keeps a per-session
// history list for late subscribers.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func NewRedisSinkFromURL(url, channel string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisSink(redis.NewClient(opts), channel), nil
}

func HistoryKey(channel, sessionID string) string {
	return fmt.Sprintf("%s:%s", channel, sessionID)
}

func (s *RedisSink) WriteSegment(ctx context.Context, seg sink.Segment) error {
	data, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("marshal segment: %w", err)
	}
	key := HistoryKey(s.channel, seg.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, sessionHistoryTTL)
	pipe.Publish(ctx, s.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish segment: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
