package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120, cfg.Server.RequestsPerMinute)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "transfers", cfg.Database.Database)

	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, "postgres", cfg.Ledger.Mode)
	assert.Equal(t, 15*time.Second, cfg.Ledger.CallTimeout)
	assert.Equal(t, uint(3), cfg.Ledger.MaxAttempts)

	assert.Equal(t, int64(1_000_000), cfg.Transfer.DailyCeilingCents)
	assert.Equal(t, int64(500_000), cfg.Transfer.FraudThresholdCents)
	assert.Equal(t, 24*time.Hour, cfg.Transfer.Window)

	assert.Equal(t, 72*time.Hour, cfg.Mirror.TTL)
	assert.Equal(t, int64(200), cfg.Mirror.MaxEntries)

	assert.Equal(t, "mirror-sync", cfg.Worker.ConsumerGroup)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{Host: "localhost", Port: 5432},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Ledger: LedgerConfig{
			Mode:        "postgres",
			CallTimeout: 15 * time.Second,
		},
		Transfer: TransferConfig{
			DailyCeilingCents:   1_000_000,
			FraudThresholdCents: 500_000,
			Window:              24 * time.Hour,
		},
		Worker: WorkerConfig{BatchSize: 10},
	}
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"unknown ledger mode", func(c *Config) { c.Ledger.Mode = "mock" }},
		{"remote mode without base url", func(c *Config) { c.Ledger.Mode = "remote" }},
		{"zero ledger timeout", func(c *Config) { c.Ledger.CallTimeout = 0 }},
		{"zero daily ceiling", func(c *Config) { c.Transfer.DailyCeilingCents = 0 }},
		{"threshold above ceiling", func(c *Config) { c.Transfer.FraudThresholdCents = 2_000_000 }},
		{"zero window", func(c *Config) { c.Transfer.Window = 0 }},
		{"zero batch size", func(c *Config) { c.Worker.BatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "transfers",
		Password: "secret",
		Database: "transfers",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=transfers password=secret dbname=transfers sslmode=require",
		cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
