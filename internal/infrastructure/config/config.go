package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT   JWTConfig
	Mongo MongoConfig
	Redis RedisConfig
	Minio MinioConfig
}

// JWTConfig holds the two token secrets and lifetimes. Access and refresh
// secrets must differ so one token class can never stand in for the other.
type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,  default=15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL, default=240h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=account_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type MinioConfig struct {
	Endpoint      string `env:"MINIO_ENDPOINT,   default=localhost:9000"`
	AccessKey     string `env:"MINIO_ACCESS_KEY"`
	SecretKey     string `env:"MINIO_SECRET_KEY"`
	Bucket        string `env:"MINIO_BUCKET,     default=viewtube-media"`
	Region        string `env:"MINIO_REGION"`
	UseSSL        bool   `env:"MINIO_USE_SSL,    default=false"`
	PublicBaseURL string `env:"MINIO_PUBLIC_URL"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
