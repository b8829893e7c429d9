package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/invest-access/internal/events"
)

const (
	activityKey = "activity:events"
	// DefaultActivitySize bounds the activity feed.
	DefaultActivitySize = 200
)

// ActivityRepository records sync events for the admin activity feed.
type ActivityRepository interface {
	Record(ctx context.Context, e events.Event) error
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

type activityRepository struct {
	client redis.Cmdable
	size   int64
}

// NewActivityRepository constructs repository.
func NewActivityRepository(client redis.Cmdable, size int) ActivityRepository {
	if size <= 0 {
		size = DefaultActivitySize
	}
	return &activityRepository{client: client, size: int64(size)}
}

func (r *activityRepository) Record(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, activityKey, payload)
		pipe.LTrim(ctx, activityKey, 0, r.size-1)
		return nil
	})
	return err
}

// Recent returns up to limit events, newest first.
func (r *activityRepository) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	return readList[events.Event](ctx, r.client, activityKey, limit, r.size)
}
