package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDatabaseConfig(t *testing.T) {
	cfg := DefaultDatabaseConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
}

func TestDatabaseConfigToPGStoreConfig(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "audit", Password: "secret",
		Database: "policyaudit", SSLMode: "require",
		MaxConns: 20, MinConns: 4,
		MaxConnLifetime: time.Hour, MaxConnIdleTime: 10 * time.Minute,
	}

	pgCfg := cfg.ToPGStoreConfig()

	assert.Equal(t, cfg.Host, pgCfg.Host)
	assert.Equal(t, cfg.Port, pgCfg.Port)
	assert.Equal(t, cfg.User, pgCfg.User)
	assert.Equal(t, cfg.Password, pgCfg.Password)
	assert.Equal(t, cfg.Database, pgCfg.Database)
	assert.Equal(t, cfg.SSLMode, pgCfg.SSLMode)
	assert.Equal(t, cfg.MaxConns, pgCfg.MaxConns)
	assert.Equal(t, cfg.MinConns, pgCfg.MinConns)
	assert.Equal(t, cfg.MaxConnLifetime, pgCfg.MaxConnLifetime)
	assert.Equal(t, cfg.MaxConnIdleTime, pgCfg.MaxConnIdleTime)
}
