// Package redis stores ledger accounts as JSON values in redis, with a set
// indexing every stored pubkey.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lugondev/flashswap/internal/config"
	"github.com/lugondev/flashswap/internal/storage"
)

func init() {
	storage.RegisterFactory("redis", func(ctx context.Context, cfg *config.StorageConfig) (storage.Repository, error) {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.Timeout,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		repo, err := NewRedisRepository(client, cfg.Redis.Prefix)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to create redis repository: %w", err)
		}
		return repo, nil
	})
}

type RedisRepository struct {
	client      redis.Cmdable
	keys        keyspace
	accountRepo storage.AccountRepository
}

// NewRedisRepository wraps client. Keys are namespaced under prefix.
func NewRedisRepository(client redis.Cmdable, prefix string) (*RedisRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if prefix == "" {
		prefix = "flashswap"
	}
	repo := &RedisRepository{client: client, keys: keyspace(prefix)}
	repo.accountRepo = &redisAccountRepository{client: client, keys: repo.keys}
	return repo, nil
}

type keyspace string

func (k keyspace) index() string {
	return string(k) + ":accounts"
}

func (k keyspace) account(pubkey string) string {
	return string(k) + ":account:" + pubkey
}

func (r *RedisRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

// Close closes the client when the repository owns a closable one.
func (r *RedisRepository) Close() error {
	if c, ok := r.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
