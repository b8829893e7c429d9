package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/invest-access/internal/domain"
)

// DefaultInboxSize bounds each recipient's stored notifications.
const DefaultInboxSize = 100

// InboxRepository keeps the most recent notifications per recipient.
type InboxRepository interface {
	Push(ctx context.Context, n domain.Notification) error
	List(ctx context.Context, recipient string, limit int) ([]domain.Notification, error)
}

type inboxRepository struct {
	client redis.Cmdable
	size   int64
}

// NewInboxRepository constructs repository. size <= 0 uses DefaultInboxSize.
func NewInboxRepository(client redis.Cmdable, size int) InboxRepository {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &inboxRepository{client: client, size: int64(size)}
}

func inboxKey(recipient string) string {
	return "inbox:" + recipient
}

func (r *inboxRepository) Push(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := inboxKey(n.Recipient)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, r.size-1)
		return nil
	})
	return err
}

// List returns up to limit notifications, newest first.
func (r *inboxRepository) List(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	return readList[domain.Notification](ctx, r.client, inboxKey(recipient), limit, r.size)
}

func readList[T any](ctx context.Context, client redis.Cmdable, key string, limit int, size int64) ([]T, error) {
	stop := size - 1
	if limit > 0 && int64(limit) < size {
		stop = int64(limit) - 1
	}
	raw, err := client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
