package config

import "time"

type AppConfig struct {
	Env                    string `mapstructure:"env"`
	Port                   int    `mapstructure:"port"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_seconds"`
	FrontendURL            string `mapstructure:"frontend_url"`
}

type MongoConfig struct {
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	MessagesCollection string `mapstructure:"messages_collection"`
	UsersCollection    string `mapstructure:"users_collection"`
	CountersCollection string `mapstructure:"counters_collection"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	ConnectMaxSeconds  int    `mapstructure:"connect_max_seconds"`
}

// StorageConfig selects where users and messages live. "memory" is meant for local runs.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr              string `mapstructure:"addr"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	Prefix            string `mapstructure:"prefix"`
	ConnectMaxSeconds int    `mapstructure:"connect_max_seconds"`
}

type RateLimitConfig struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type EventsConfig struct {
	Driver           string `mapstructure:"driver"`
	TopicMessageSent string `mapstructure:"topic_message_sent"`
	TopicPresence    string `mapstructure:"topic_presence"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type BreakerConfig struct {
	MaxFailures     uint32 `mapstructure:"max_failures"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Issuer     string `mapstructure:"issuer"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	PongWaitSeconds      int   `mapstructure:"pong_wait_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
	RatePerSecond        int   `mapstructure:"rate_per_second"`
}

type UploadsConfig struct {
	Driver         string `mapstructure:"driver"`
	Dir            string `mapstructure:"dir"`
	MaxBytes       int64  `mapstructure:"max_bytes"`
	ImportMaxBytes int64  `mapstructure:"import_max_bytes"`
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Config struct {
	PresignTTLSeconds int `mapstructure:"presign_ttl_seconds"`
}

type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Mongo     MongoConfig     `mapstructure:"mongodb"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Events    EventsConfig    `mapstructure:"events"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WS        WSConfig        `mapstructure:"ws"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	AWS       AWSConfig       `mapstructure:"aws"`
	S3        S3Config        `mapstructure:"s3"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MongoTimeout    time.Duration
	MongoConnectMax time.Duration
	RedisConnectMax time.Duration
	RateWindow      time.Duration
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
	JWTTTL          time.Duration
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteDeadline   time.Duration
	PresignTTL      time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "dev"
}
