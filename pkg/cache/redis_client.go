package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"currency-bridge/internal/config"
	"currency-bridge/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss - таблицы на дату нет в Redis
var ErrCacheMiss = errors.New("rate table not found")

type RedisClient struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
}

// NewRedisClient создает новый Redis клиент
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisClient{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

func tableKey(date string) string {
	return fmt.Sprintf("rates:%s", date)
}

// GetRateTable получает таблицу курсов на дату из Redis
func (r *RedisClient) GetRateTable(ctx context.Context, date string) (*model.RateTable, error) {
	if r == nil {
		return nil, ErrCacheMiss
	}
	key := tableKey(date)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		r.logger.Error("Redis GET error",
			zap.String("key", key),
			zap.Error(err))
		return nil, err
	}
	var table model.RateTable
	if err := json.Unmarshal(raw, &table); err != nil {
		r.logger.Error("Redis value is not a rate table",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("invalid rate table format: %w", err)
	}
	return &table, nil
}

// SetRateTable сохраняет таблицу курсов в Redis
func (r *RedisClient) SetRateTable(ctx context.Context, table *model.RateTable) error {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode rate table: %w", err)
	}
	key := tableKey(table.Date)
	if err := r.client.Set(ctx, key, raw, r.config.TTL).Err(); err != nil {
		r.logger.Error("Redis SET error",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("caching error: %w", err)
	}
	r.logger.Debug("Rate table saved to Redis",
		zap.String("key", key),
		zap.Int("currencies", len(table.USD)),
		zap.Duration("ttl", r.config.TTL),
	)
	return nil
}

// HealthCheck проверяет доступность Redis
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil {
		return errors.New("redis is not configured")
	}
	err := r.client.Ping(ctx).Err()
	if err != nil {
		r.logger.Warn("Redis health check failed",
			zap.Error(err),
		)
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}

// Close закрывает подключение к Redis
func (r *RedisClient) Close() {
	if r == nil || r.client == nil {
		return
	}
	r.client.Close()
}
