package bootstrap

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/auth"
	"github.com/fathima-sithara/chat-app/internal/config"
	"github.com/fathima-sithara/chat-app/internal/database"
	"github.com/fathima-sithara/chat-app/internal/events"
	"github.com/fathima-sithara/chat-app/internal/handlers"
	"github.com/fathima-sithara/chat-app/internal/kafka"
	"github.com/fathima-sithara/chat-app/internal/middleware"
	"github.com/fathima-sithara/chat-app/internal/presence"
	redisstore "github.com/fathima-sithara/chat-app/internal/redis"
	"github.com/fathima-sithara/chat-app/internal/repository"
	"github.com/fathima-sithara/chat-app/internal/routes"
	"github.com/fathima-sithara/chat-app/internal/server"
	"github.com/fathima-sithara/chat-app/internal/service"
	"github.com/fathima-sithara/chat-app/internal/storage"
	"github.com/fathima-sithara/chat-app/internal/store"
	"github.com/fathima-sithara/chat-app/internal/ws"
)

type AppContext struct {
	Config    *config.Config
	Logger    *zap.Logger
	Mongo     *mongo.Client
	Redis     *redis.Client
	Publisher events.Publisher
	Registry  *presence.Registry
	LastSeen  *redisstore.PresenceStore
	App       *fiber.App
}

type CleanupFn func(context.Context)

// Init wires every component from cfg. On error, whatever was already opened is closed.
func Init(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *AppContext, _ CleanupFn, err error) {
	app := &AppContext{Config: cfg, Logger: logger, Publisher: events.Noop{}}
	cleanup := func(ctx context.Context) {
		if cerr := app.Publisher.Close(); cerr != nil {
			logger.Error("event publisher close error", zap.Error(cerr))
		}
		if app.Mongo != nil {
			if cerr := app.Mongo.Disconnect(ctx); cerr != nil {
				logger.Error("MongoDB disconnect error", zap.Error(cerr))
			}
		}
		if app.LastSeen != nil {
			app.LastSeen.Close()
		}
		if app.Redis != nil {
			if cerr := app.Redis.Close(); cerr != nil {
				logger.Error("Redis client close error", zap.Error(cerr))
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup(context.Background())
		}
	}()

	messages, users, err := openRepositories(ctx, app)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Redis.Addr != "" {
		app.Redis, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.RedisConnectMax, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	app.Publisher = publisher

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	jwtMgr := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWTTTL)

	app.Registry = presence.NewRegistry()
	gateway := ws.NewGateway(app.Registry, jwtMgr, ws.Settings{
		PingInterval:   cfg.PingInterval,
		PongWait:       cfg.PongWait,
		WriteDeadline:  cfg.WriteDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
		SendBuffer:     cfg.WS.SendBuffer,
		RatePerSecond:  cfg.WS.RatePerSecond,
	}, logger)
	app.Registry.Subscribe(events.PresenceObserver(app.Publisher, cfg.Events.TopicPresence, logger))

	var lastSeen handlers.LastSeenReader
	if app.Redis != nil {
		app.LastSeen = redisstore.NewPresenceStore(app.Redis, cfg.Redis.Prefix, logger)
		app.Registry.Subscribe(app.LastSeen.Observe)
		lastSeen = app.LastSeen
	}

	msgStore := store.NewMessageStore(messages, users)
	router := service.NewMessageRouter(msgStore, users, gateway, app.Publisher, cfg.Events.TopicMessageSent, logger)
	accounts := service.NewAccountService(users, jwtMgr, logger)
	if err := accounts.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return nil, nil, err
	}
	directory := service.NewDirectoryService(users, accounts, logger)
	uploader := storage.NewUploader(blobs, cfg.Uploads.MaxBytes, logger)

	limiter := middleware.NewRateLimiter(app.Redis, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateWindow, logger)

	app.App = server.New(cfg, logger)
	routes.Setup(app.App, routes.Deps{
		Verifier:    jwtMgr,
		Auth:        handlers.NewAuthHandler(accounts, logger),
		Chat:        handlers.NewChatHandler(router, uploader, blobs, msgStore, cfg.PresignTTL, logger),
		Admin:       handlers.NewAdminHandler(directory, cfg.Uploads.ImportMaxBytes, logger),
		Presence:    handlers.NewPresenceHandler(app.Registry, lastSeen, logger),
		Gateway:     gateway,
		SendLimiter: limiter.MiddlewareByKey(middleware.ByUser),
	})

	return app, cleanup, nil
}

func openRepositories(ctx context.Context, app *AppContext) (repository.MessageRepository, repository.UserRepository, error) {
	cfg := app.Config
	if cfg.Storage.Driver == "memory" {
		app.Logger.Warn("using in-memory storage; data is lost on restart")
		return repository.NewMemoryMessageRepository(), repository.NewMemoryUserRepository(), nil
	}

	db, client, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.MongoConnectMax, app.Logger)
	if err != nil {
		return nil, nil, err
	}
	app.Mongo = client

	messages, err := repository.NewMongoMessageRepository(db, cfg.Mongo.MessagesCollection, cfg.Mongo.CountersCollection, cfg.MongoTimeout)
	if err != nil {
		return nil, nil, err
	}
	users, err := repository.NewMongoUserRepository(db, cfg.Mongo.UsersCollection, cfg.MongoTimeout)
	if err != nil {
		return nil, nil, err
	}
	return messages, users, nil
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	var next events.Publisher
	switch cfg.Events.Driver {
	case "kafka":
		next = kafka.NewProducer(cfg.Kafka.Brokers)
	case "nats":
		np, err := events.NewNatsPublisher(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		next = np
	default:
		return events.Noop{}, nil
	}
	logger.Info("event publisher ready", zap.String("driver", cfg.Events.Driver))
	return events.NewBreaker(cfg.Events.Driver, next, events.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
	}, logger), nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Uploads.Driver == "s3" {
		return storage.NewS3Store(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint)
	}
	return storage.NewLocalStore(cfg.Uploads.Dir)
}
