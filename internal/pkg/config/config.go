package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// StoreBackend selects the order store: "mongo" or "memory".
	StoreBackend string `env:"STORE_BACKEND, default=memory"`

	// LockShards sets the arbitration shard count.
	LockShards int `env:"LOCK_SHARDS, default=64"`

	Mongo MongoConfig
	Redis RedisConfig
	AMQP  AMQPConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=order_engine"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// AMQPConfig enables the RabbitMQ change-event publisher when URL is set.
type AMQPConfig struct {
	URL string `env:"AMQP_URL"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
