package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKey       = "kiosk:activity"
	defaultQueueSize = 64
	writeTimeout     = 2 * time.Second
)

// ListClient is the part of the redis client the journal uses.
type ListClient interface {
	TxPipeline() redis.Pipeliner
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// Redis stores entries in a capped list so several processes can read the kiosk history.
// Writes go through a buffered queue drained by Run; a full queue drops entries.
type Redis struct {
	client   ListClient
	key      string
	capacity int
	queue    chan Entry
	logger   *zap.Logger
}

// NewRedis returns a journal writing to the list at key for kioskID.
func NewRedis(client ListClient, kioskID string, capacity int, logger *zap.Logger) *Redis {
	if capacity <= 0 {
		capacity = 20
	}
	key := defaultKey
	if kioskID != "" {
		key = defaultKey + ":" + kioskID
	}
	return &Redis{
		client:   client,
		key:      key,
		capacity: capacity,
		queue:    make(chan Entry, defaultQueueSize),
		logger:   logger,
	}
}

// Record implements Journal.
func (r *Redis) Record(e Entry) {
	select {
	case r.queue <- stamp(e):
	default:
		r.logger.Warn("journal queue full, dropping entry", zap.String("kind", string(e.Kind)))
	}
}

// Run drains the queue until ctx is done.
func (r *Redis) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.queue:
			if err := r.write(ctx, e); err != nil {
				r.logger.Warn("journal write failed", zap.Error(err))
			}
		}
	}
}

func (r *Redis) write(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
	_, err = pipe.Exec(ctx)
	return err
}

// Recent implements Journal, newest first.
func (r *Redis) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}
	raw, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			r.logger.Warn("skipping malformed journal entry", zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
