// Package config содержит логику чтения конфигурации сервиса активности.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса активности.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	SnapshotFile string `env:"SNAPSHOT_FILE"`
	AuthSecret   string `env:"AUTH_SECRET"`
	CORSOrigin   string `env:"CORS_ORIGIN"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Значение из окружения имеет приоритет над флагом.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSnapshotFile := cfg.SnapshotFile
	envAuthSecret := cfg.AuthSecret
	envCORSOrigin := cfg.CORSOrigin

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "document database URI")
	flag.StringVar(&cfg.SnapshotFile, "s", "", "path to fallback snapshot file")
	flag.StringVar(&cfg.AuthSecret, "k", "", "secret key for auth cookie verification")
	flag.StringVar(&cfg.CORSOrigin, "c", "", "allowed CORS origin of the canteen SPA")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSnapshotFile != "" {
		cfg.SnapshotFile = envSnapshotFile
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envCORSOrigin != "" {
		cfg.CORSOrigin = envCORSOrigin
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
