package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ClientConfig struct {
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	SessionID int64  `env:"SESSION_ID,required"`
	GameSlug  string `env:"GAME_SLUG"`
	UserID    int64  `env:"USER_ID"`

	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"8s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"5"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	err := env.Parse(&cfg)
	return cfg, err
}
