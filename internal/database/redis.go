package database

import (
	"context"

	"github.com/bankledger/backend/internal/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InitRedis returns a connected client, or nil when Redis is unreachable so
// the server can run without event publishing.
func InitRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without redis", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Host+":"+cfg.Port))
	return rdb
}
