package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	defaults(v)
	v.Set("CONFIG_DIR", t.TempDir())

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.ChecklistSaveEvery)
	assert.Equal(t, 30*time.Second, cfg.EmergencyAutoSave)
	assert.Equal(t, 0, cfg.QueueMaxAttempts)
	assert.Equal(t, "@every 15s", cfg.ProbeSchedule)
	assert.Equal(t, 7*24*time.Hour, cfg.QueueRetention)
	assert.Equal(t, filepath.Join(cfg.ConfigDir, "queue.db"), cfg.QueueDBPath)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
	assert.True(t, cfg.IsLocal())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "gw.example.com")
	t.Setenv("ENABLE_TLS", "true")
	t.Setenv("TECHNICIAN_ID", "tech-7")
	t.Setenv("QUEUE_MAX_ATTEMPTS", "10")
	t.Setenv("EMERGENCY_AUTOSAVE_INTERVAL", "1m")
	t.Setenv("QUEUE_DB_PATH", "/var/lib/lift/queue.db")

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com", cfg.BaseURL())
	assert.Equal(t, "tech-7", cfg.TechnicianID)
	assert.Equal(t, 10, cfg.QueueMaxAttempts)
	assert.Equal(t, time.Minute, cfg.EmergencyAutoSave)
	assert.Equal(t, "/var/lib/lift/queue.db", cfg.QueueDBPath)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"empty server", "SERVER_ADDRESS", ""},
		{"zero save cadence", "CHECKLIST_SAVE_EVERY", 0},
		{"zero autosave interval", "EMERGENCY_AUTOSAVE_INTERVAL", "0s"},
		{"negative attempts", "QUEUE_MAX_ATTEMPTS", -1},
		{"negative retention", "QUEUE_RETENTION", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			defaults(v)
			v.Set(tt.key, tt.val)

			_, err := load(v)
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "client.yaml")
	content := "server_address: field.example.com:9443\nenable_tls: true\ntechnician_id: tech-3\nconfig_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "https://field.example.com:9443", cfg.BaseURL())
	assert.Equal(t, "tech-3", cfg.TechnicianID)
	assert.Equal(t, filepath.Join(dir, "queue.db"), cfg.QueueDBPath)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
