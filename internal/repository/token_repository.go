package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the denylist cannot be reached within
// the retry budget.
var ErrUnavailable = errors.New("denylist unavailable")

const (
	denylistPrefix  = "blacklist:"
	codeSeenPrefix  = "oauth:code:"
	denylistMarker  = "1"
	defaultRetryFor = 15 * time.Second
)

// TokenRepo is the Redis-backed token denylist. An entry `blacklist:<jti>`
// lives exactly until the token it names would have expired, so the set
// never outgrows the population of live tokens.
type TokenRepo struct {
	RDB *redis.Client
	// RetryBudget bounds how long one operation keeps retrying transient
	// Redis failures before giving up with ErrUnavailable.
	RetryBudget time.Duration
}

func NewTokenRepo(rdb *redis.Client, retryBudget time.Duration) *TokenRepo {
	if retryBudget <= 0 {
		retryBudget = defaultRetryFor
	}
	return &TokenRepo{RDB: rdb, RetryBudget: retryBudget}
}

func (r *TokenRepo) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = r.RetryBudget
	return backoff.WithContext(b, ctx)
}

// retry runs op until it succeeds, the context ends or the budget runs out.
func (r *TokenRepo) retry(ctx context.Context, op func() error) error {
	err := backoff.Retry(func() error {
		err := op()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, r.newBackOff(ctx))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Add denylists jti for ttl. Non-positive ttl is a no-op because the
// token has already expired. Adding the same jti twice is harmless.
func (r *TokenRepo) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.retry(ctx, func() error {
		return r.RDB.Set(ctx, denylistPrefix+jti, denylistMarker, ttl).Err()
	})
}

// Contains reports whether jti is currently denylisted.
func (r *TokenRepo) Contains(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := r.retry(ctx, func() error {
		var err error
		n, err = r.RDB.Exists(ctx, denylistPrefix+jti).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCodeSeen records an OAuth authorization code and reports whether it
// is the first time the code is presented. The raw code is never stored.
func (r *TokenRepo) MarkCodeSeen(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	sum := sha256.Sum256([]byte(code))
	key := codeSeenPrefix + hex.EncodeToString(sum[:])
	var first bool
	err := r.retry(ctx, func() error {
		var err error
		first, err = r.RDB.SetNX(ctx, key, denylistMarker, ttl).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return first, nil
}
