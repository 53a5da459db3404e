package reversal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "pipeline:reversal:token:"
	dealKeyPrefix  = "pipeline:reversal:deal:"
)

// deleteDealIfMatch removes the deal index only when it still points at the token.
var deleteDealIfMatch = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisTokenStore keeps pending reversals in Redis with a TTL, so they survive
// restarts and expire without a sweeper.
type RedisTokenStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisTokenStore wraps an existing client. now defaults to time.Now.
func NewRedisTokenStore(rdb *redis.Client, now func() time.Time) *RedisTokenStore {
	if now == nil {
		now = time.Now
	}
	return &RedisTokenStore{rdb: rdb, now: now}
}

func (s *RedisTokenStore) Put(ctx context.Context, p Pending) error {
	ttl := p.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("reversal token for deal %s already expired", p.DealID)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	if err := s.DiscardForDeal(ctx, p.DealID); err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKeyPrefix+p.Token, payload, ttl)
		pipe.Set(ctx, dealKeyPrefix+p.DealID, p.Token, ttl)
		return nil
	})
	return err
}

func (s *RedisTokenStore) Take(ctx context.Context, token string) (Pending, error) {
	raw, err := s.rdb.GetDel(ctx, tokenKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrTokenNotFound
	}
	if err != nil {
		return Pending{}, err
	}

	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pending{}, fmt.Errorf("decode reversal token: %w", err)
	}
	if err := deleteDealIfMatch.Run(ctx, s.rdb, []string{dealKeyPrefix + p.DealID}, p.Token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return Pending{}, err
	}
	return p, nil
}

func (s *RedisTokenStore) HasPending(ctx context.Context, dealID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, dealKeyPrefix+dealID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisTokenStore) DiscardForDeal(ctx context.Context, dealID string) error {
	token, err := s.rdb.Get(ctx, dealKeyPrefix+dealID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, tokenKeyPrefix+token, dealKeyPrefix+dealID).Err()
}

var _ TokenStore = (*RedisTokenStore)(nil)
