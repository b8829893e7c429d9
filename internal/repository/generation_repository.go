package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const generationKey = "auth:generation"

// GenerationRepository tracks the session revocation generation. Tokens
// carry the generation they were issued under; bumping it revokes them all.
type GenerationRepository interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

type generationRepository struct {
	client redis.Cmdable
}

// NewGenerationRepository constructs repository.
func NewGenerationRepository(client redis.Cmdable) GenerationRepository {
	return &generationRepository{client: client}
}

func (r *generationRepository) Current(ctx context.Context) (int64, error) {
	n, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *generationRepository) Bump(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, generationKey).Result()
}
