// Package config loads the example application's environment, showing
// how a caller wires this module's pool.Config from env vars. The core
// library itself never reads the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the example app's own settings, not the library's.
type Config struct {
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	APIAddr        string        `env:"API_ADDR" envDefault:":8080"`
	PostgresDSN    string        `env:"POSTGRES_DSN,notEmpty"`
	PoolMaxConns   int32         `env:"POOL_MAX_CONNS" envDefault:"10"`
	PoolMinConns   int32         `env:"POOL_MIN_CONNS" envDefault:"0"`
	ConnectTimeout time.Duration `env:"POOL_CONNECT_TIMEOUT" envDefault:"5s"`
	QueueName      string        `env:"QUEUE_NAME" envDefault:"jobs"`
}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
