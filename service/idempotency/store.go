/*
 * @module service/idempotency/store
 * @description 基于Redis的消息幂等存储，防止同一消息被重复处理产出重复结果
 * @architecture 适配器模式 - 实现queue.IdempotencyStore接口
 * @documentReference dev_docs/queue_pipeline_requirements.md
 * @stateFlow 处理前Seen查询 -> 处理完成Mark标记 -> TTL到期自动过期
 * @rules 幂等键带TTL，过期后同一消息ID允许再次处理；Redis不可用时降级为不去重
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/queue/sink.go, service/init.go
 */

package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "dataquality:processed:"

// RedisStore 基于Redis的幂等存储
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Config Redis连接配置
type Config struct {
	Address  string
	Password string
	Database int
	TTL      time.Duration
}

// NewRedisStore 创建幂等存储并验证连接
func NewRedisStore(ctx context.Context, config *Config, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.Database,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	logger.Info("幂等存储已连接", "address", config.Address, "ttl", ttl.String())
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

// Seen 判断消息是否已处理过
func (s *RedisStore) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("幂等查询失败: %w", err)
	}
	return n > 0, nil
}

// Mark 标记消息已处理，键带TTL自动过期
func (s *RedisStore) Mark(ctx context.Context, messageID string) error {
	if err := s.client.Set(ctx, keyPrefix+messageID, time.Now().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return fmt.Errorf("幂等标记失败: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
