// Package cachesvc keeps the certification gate answers in Redis.
package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/certification"
)

const keyPrefix = "academy:certified:"

type CertificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ certification.Cache = (*CertificationCache)(nil) // interface compliance check

func NewRedisClient(conf core.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
}

func NewCertificationCache(client *redis.Client, ttl time.Duration) *CertificationCache {
	return &CertificationCache{client: client, ttl: ttl}
}

func (c *CertificationCache) key(userID string) string {
	return keyPrefix + userID
}

func (c *CertificationCache) GetCertified(ctx context.Context, userID string) (bool, bool, error) {
	val, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrap(err, "reading certification cache")
	}
	return val == "1", true, nil
}

func (c *CertificationCache) SetCertified(ctx context.Context, userID string, certified bool) error {
	val := "0"
	if certified {
		val = "1"
	}
	return errors.Wrap(c.client.Set(ctx, c.key(userID), val, c.ttl).Err(), "writing certification cache")
}

func (c *CertificationCache) Invalidate(ctx context.Context, userID string) error {
	return errors.Wrap(c.client.Del(ctx, c.key(userID)).Err(), "invalidating certification cache")
}
