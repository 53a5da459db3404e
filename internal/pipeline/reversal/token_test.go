package reversal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var start = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newRedisStore(t *testing.T, clock *fakeClock) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisTokenStore(rdb, clock.Now), mr
}

func storesUnderTest(t *testing.T) map[string]TokenStore {
	clock := &fakeClock{t: start}
	rs, _ := newRedisStore(t, clock)
	return map[string]TokenStore{
		"memory": NewMemoryTokenStore(clock.Now),
		"redis":  rs,
	}
}

func TestTokenStoreSingleUse(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
			if err := s.Put(ctx, p); err != nil {
				t.Fatalf("put: %v", err)
			}
			if ok, _ := s.HasPending(ctx, "deal-1"); !ok {
				t.Fatal("expected pending reversal for deal-1")
			}

			got, err := s.Take(ctx, p.Token)
			if err != nil {
				t.Fatalf("take: %v", err)
			}
			if got.DealID != "deal-1" || got.AccountID != "acc-1" {
				t.Fatalf("unexpected pending %+v", got)
			}
			if _, err := s.Take(ctx, p.Token); !errors.Is(err, ErrTokenNotFound) {
				t.Fatalf("expected ErrTokenNotFound on second take, got %v", err)
			}
			if ok, _ := s.HasPending(ctx, "deal-1"); ok {
				t.Fatal("expected no pending reversal after take")
			}
		})
	}
}

func TestTokenStorePutReplacesEarlierToken(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
			second := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
			_ = s.Put(ctx, first)
			_ = s.Put(ctx, second)

			if _, err := s.Take(ctx, first.Token); !errors.Is(err, ErrTokenNotFound) {
				t.Fatalf("expected first token replaced, got %v", err)
			}
			if _, err := s.Take(ctx, second.Token); err != nil {
				t.Fatalf("expected second token valid, got %v", err)
			}
		})
	}
}

func TestTokenStoreDiscardForDeal(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
			_ = s.Put(ctx, p)
			if err := s.DiscardForDeal(ctx, "deal-1"); err != nil {
				t.Fatalf("discard: %v", err)
			}
			if _, err := s.Take(ctx, p.Token); !errors.Is(err, ErrTokenNotFound) {
				t.Fatalf("expected discarded token gone, got %v", err)
			}
			if err := s.DiscardForDeal(ctx, "unknown"); err != nil {
				t.Fatalf("discard unknown: %v", err)
			}
		})
	}
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	clock := &fakeClock{t: start}
	s := NewMemoryTokenStore(clock.Now)
	p := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
	_ = s.Put(context.Background(), p)

	clock.t = start.Add(2 * time.Hour)
	if ok, _ := s.HasPending(context.Background(), "deal-1"); ok {
		t.Fatal("expected expired reversal not pending")
	}
	if _, err := s.Take(context.Background(), p.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected expired token not found, got %v", err)
	}
}

func TestRedisTokenStoreExpiry(t *testing.T) {
	clock := &fakeClock{t: start}
	s, mr := newRedisStore(t, clock)
	p := NewPending("deal-1", "acc-1", "u1", start, time.Hour)
	if err := s.Put(context.Background(), p); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := s.HasPending(context.Background(), "deal-1"); ok {
		t.Fatal("expected expired reversal not pending")
	}
	if _, err := s.Take(context.Background(), p.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected expired token not found, got %v", err)
	}
}

func TestRedisTokenStoreRejectsExpiredPut(t *testing.T) {
	clock := &fakeClock{t: start.Add(2 * time.Hour)}
	s, _ := newRedisStore(t, clock)
	if err := s.Put(context.Background(), NewPending("deal-1", "acc-1", "u1", start, time.Hour)); err == nil {
		t.Fatal("expected error for expired pending reversal")
	}
}
