package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo retries connect+ping with exponential backoff until maxElapsed.
func ConnectMongo(ctx context.Context, uri, dbName string, maxElapsed time.Duration, logger *zap.Logger) (*mongo.Database, *mongo.Client, error) {
	var client *mongo.Client
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(attemptCtx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(attemptCtx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	notify := func(err error, next time.Duration) {
		logger.Warn("mongodb not ready, retrying", zap.Error(err), zap.Duration("next", next))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		logger.Error("mongodb connection failed", zap.Error(err))
		return nil, nil, err
	}

	logger.Info("mongodb connected", zap.String("database", dbName))
	return client.Database(dbName), client, nil
}
