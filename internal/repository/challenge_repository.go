package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/invest-access/internal/domain"
)

// ErrChallengeNotFound is returned when a challenge expired, was never
// issued, or was already used.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeRepository stores single-use sign-in challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge domain.Challenge) error
	Consume(ctx context.Context, address string) (*domain.Challenge, error)
}

type challengeRepository struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewChallengeRepository constructs a Redis-backed repository. Challenges
// expire through the key TTL.
func NewChallengeRepository(client redis.Cmdable) ChallengeRepository {
	return &challengeRepository{client: client, now: time.Now}
}

func challengeKey(address string) string {
	return "auth:challenge:" + address
}

// Create stores challenge, replacing any outstanding one for the address.
func (r *challengeRepository) Create(ctx context.Context, challenge domain.Challenge) error {
	ttl := challenge.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}
	payload, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, challengeKey(challenge.Address), payload, ttl).Err()
}

// Consume returns and deletes the outstanding challenge for address.
func (r *challengeRepository) Consume(ctx context.Context, address string) (*domain.Challenge, error) {
	raw, err := r.client.GetDel(ctx, challengeKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}
	var challenge domain.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, err
	}
	if !challenge.ExpiresAt.After(r.now()) {
		return nil, ErrChallengeNotFound
	}
	return &challenge, nil
}
