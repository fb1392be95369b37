// Package leaderelection gates singleton background jobs across redundant
// deployments. It is a lease on a Redis key: the holder refreshes the TTL on
// every check, everyone else backs off until the lease expires.
package leaderelection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Check is the injected "may I run now" capability. Jobs depend on this
// interface, not on Redis.
type Check interface {
	IsLeader(ctx context.Context) (bool, error)
}

// Elector implements Check with a Redis lease.
type Elector struct {
	client *goredis.Client
	key    string
	id     string
	ttl    time.Duration
}

func New(client *goredis.Client, key string, ttl time.Duration) *Elector {
	return &Elector{
		client: client,
		key:    key,
		id:     uuid.NewString(),
		ttl:    ttl,
	}
}

func (e *Elector) IsLeader(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.key, e.id, e.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := e.client.Get(ctx, e.key).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != e.id {
		return false, nil
	}
	// Still the holder; extend the lease.
	if err := e.client.Expire(ctx, e.key, e.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Always is a Check for single-instance deployments without Redis.
type Always struct{}

func (Always) IsLeader(context.Context) (bool, error) { return true, nil }
