package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	readCount     = 100
	readBlock     = time.Second
	reconnectWait = time.Second
)

// StreamSource reads records from a Redis Stream. Each stream message is
// expected to carry the raw JSON record in a "payload" field; messages
// without one ship their full field map as the record instead.
type StreamSource struct {
	client *redis.Client
	stream string
	// startID is the stream position to read from; "$" means only
	// messages added after the source starts.
	startID string
	logger  *slog.Logger
}

// NewStreamSource creates a source over an existing Redis client. An
// empty startID defaults to "$".
func NewStreamSource(client *redis.Client, stream, startID string, logger *slog.Logger) *StreamSource {
	if startID == "" {
		startID = "$"
	}
	return &StreamSource{
		client:  client,
		stream:  stream,
		startID: startID,
		logger:  logger.With("component", "redis_source"),
	}
}

// Run consumes the stream until the context is cancelled. Read errors are
// logged and retried; they never terminate the source.
func (s *StreamSource) Run(ctx context.Context, q Enqueuer) error {
	lastID := s.startID

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{s.stream, lastID},
			Count:   readCount,
			Block:   readBlock,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue // block timeout, nothing new
			}
			s.logger.Error("failed to read from stream", "error", err, "stream", s.stream)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectWait):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				record, ok := s.extract(msg)
				if !ok {
					continue
				}
				q.Enqueue(record)
			}
		}
	}
}

// extract pulls the raw record out of one stream message.
func (s *StreamSource) extract(msg redis.XMessage) (json.RawMessage, bool) {
	if payload, ok := msg.Values["payload"].(string); ok {
		if !json.Valid([]byte(payload)) {
			s.logger.Warn("skipping stream message with invalid JSON payload", "id", msg.ID)
			return nil, false
		}
		return json.RawMessage(payload), true
	}

	record, err := json.Marshal(msg.Values)
	if err != nil {
		s.logger.Warn("skipping unmarshalable stream message", "id", msg.ID, "error", err)
		return nil, false
	}
	return record, true
}
