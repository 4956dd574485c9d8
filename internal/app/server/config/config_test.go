package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	defaults(v)

	cfg := load(v)
	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "migrations", cfg.DB.Migrations)
	assert.Equal(t, "http://localhost:8080/files", cfg.Storage.PublicBaseURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("DATABASE_URI", "postgres://lift:lift@db:5432/lift")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example.com/files/")

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg := load(v)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "postgres://lift:lift@db:5432/lift", cfg.DB.DatabaseURI)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://cdn.example.com/files", cfg.Storage.PublicBaseURL)
}
