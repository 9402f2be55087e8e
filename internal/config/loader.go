package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.read_timeout_seconds", 30)
	v.SetDefault("app.write_timeout_seconds", 30)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.frontend_url", "http://localhost:5173")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "chat_app")
	v.SetDefault("mongodb.messages_collection", "messages")
	v.SetDefault("mongodb.users_collection", "users")
	v.SetDefault("mongodb.counters_collection", "counters")
	v.SetDefault("mongodb.timeout_seconds", 5)
	v.SetDefault("mongodb.connect_max_seconds", 30)

	v.SetDefault("storage.driver", "mongo")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat")
	v.SetDefault("redis.connect_max_seconds", 15)

	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.window_seconds", 60)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.topic_message_sent", "message.sent")
	v.SetDefault("events.topic_presence", "presence.changed")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.interval_seconds", 60)
	v.SetDefault("breaker.timeout_seconds", 30)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "chat-app")
	v.SetDefault("jwt.ttl_minutes", 60)

	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.pong_wait_seconds", 60)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 65536)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.rate_per_second", 10)

	v.SetDefault("uploads.driver", "local")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_bytes", 50*1024*1024)
	v.SetDefault("uploads.import_max_bytes", 5*1024*1024)

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("s3.presign_ttl_seconds", 600)

	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("log.level", "info")
}

// Load reads path (if it exists) and overlays environment variables, e.g. MONGODB_URI or JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	c.ReadTimeout = seconds(c.App.ReadTimeoutSeconds)
	c.WriteTimeout = seconds(c.App.WriteTimeoutSeconds)
	c.ShutdownTimeout = seconds(c.App.ShutdownTimeoutSeconds)
	c.MongoTimeout = seconds(c.Mongo.TimeoutSeconds)
	c.MongoConnectMax = seconds(c.Mongo.ConnectMaxSeconds)
	c.RedisConnectMax = seconds(c.Redis.ConnectMaxSeconds)
	c.RateWindow = seconds(c.RateLimit.WindowSeconds)
	c.BreakerInterval = seconds(c.Breaker.IntervalSeconds)
	c.BreakerTimeout = seconds(c.Breaker.TimeoutSeconds)
	c.JWTTTL = time.Duration(c.JWT.TTLMinutes) * time.Minute
	c.PingInterval = seconds(c.WS.PingIntervalSeconds)
	c.PongWait = seconds(c.WS.PongWaitSeconds)
	c.WriteDeadline = seconds(c.WS.WriteDeadlineSeconds)
	c.PresignTTL = seconds(c.S3.PresignTTLSeconds)
	return &c, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.WS.PongWaitSeconds <= c.WS.PingIntervalSeconds {
		return fmt.Errorf("config: ws.pong_wait_seconds (%d) must exceed ws.ping_interval_seconds (%d)",
			c.WS.PongWaitSeconds, c.WS.PingIntervalSeconds)
	}
	if err := oneOf("storage.driver", c.Storage.Driver, "mongo", "memory"); err != nil {
		return err
	}
	if err := oneOf("uploads.driver", c.Uploads.Driver, "local", "s3"); err != nil {
		return err
	}
	if err := oneOf("events.driver", c.Events.Driver, "none", "kafka", "nats"); err != nil {
		return err
	}
	if c.Uploads.Driver == "s3" && c.AWS.Bucket == "" {
		return errors.New("config: aws.bucket is required when uploads.driver is s3")
	}
	return nil
}

func oneOf(key, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", key, strings.Join(allowed, "|"), val)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
