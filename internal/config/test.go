package config

import "github.com/caarlos0/env/v11"

// TestConfig carries the opt-in database DSN for store integration tests.
// Absence of the variable makes those tests skip.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
