package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	EventsLimit int `env:"EVENTS_LIMIT" envDefault:"50"`

	// How long a session may sit idle before the janitor marks it paused.
	IdleTimeoutMins int `env:"SESSION_IDLE_TIMEOUT_MINUTES" envDefault:"120"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
