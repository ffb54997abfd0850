package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port      string        `envconfig:"PORT" default:"8080"`
	MySQLDSN  string        `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/inventory?parseTime=true"`
	RedisAddr string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"60s"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
