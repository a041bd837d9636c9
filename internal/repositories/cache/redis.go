package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fluxpay/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

const balanceTTL = 5 * time.Minute

// RedisCache keeps a cache-aside copy of wallet balances. Writers invalidate
// after commit; a miss falls through to the store.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetBalances(ctx context.Context, userID uint) ([]models.WalletBalance, error) {
	val, err := c.client.Get(ctx, balancesKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var balances []models.WalletBalance
	if err := json.Unmarshal([]byte(val), &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

func (c *RedisCache) SetBalances(ctx context.Context, userID uint, balances []models.WalletBalance) error {
	data, err := json.Marshal(balances)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, balancesKey(userID), data, balanceTTL).Err()
}

func (c *RedisCache) InvalidateWallet(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, balancesKey(userID)).Err()
}

func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func balancesKey(userID uint) string {
	return fmt.Sprintf("wallet:balances:%d", userID)
}
