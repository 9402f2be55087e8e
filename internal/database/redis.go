package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func ConnectRedis(ctx context.Context, addr, password string, db int, maxElapsed time.Duration, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		logger.Error("redis ping failed", zap.String("addr", addr), zap.Error(err))
		_ = rdb.Close()
		return nil, err
	}

	logger.Info("redis connected", zap.String("addr", addr))
	return rdb, nil
}
