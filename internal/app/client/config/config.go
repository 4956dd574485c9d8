package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".liftkeeper"
	defaultQueueDB       = "queue.db"
)

type Config struct {
	Env                string        `mapstructure:"app_env"`
	ServerAddress      string        `mapstructure:"server_address"`
	LogLevel           string        `mapstructure:"log_level"`
	ConfigDir          string        `mapstructure:"config_dir"`
	QueueDBPath        string        `mapstructure:"queue_db_path"`
	TechnicianID       string        `mapstructure:"technician_id"`
	EnableTLS          bool          `mapstructure:"enable_tls"`
	ChecklistSaveEvery int           `mapstructure:"checklist_save_every"`
	EmergencyAutoSave  time.Duration `mapstructure:"emergency_autosave_interval"`
	ProbeSchedule      string        `mapstructure:"probe_schedule"`
	QueueMaxAttempts   int           `mapstructure:"queue_max_attempts"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	QueueRetention     time.Duration `mapstructure:"queue_retention"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("invalid client config: %v", err))
	}
	return cfg
}

// Load читает .env, необязательный yaml-файл и переменные окружения.
// Пустой file означает поиск config.yaml в ~/.liftkeeper и текущем каталоге.
func Load(file string) (*Config, error) {
	// .env рядом с местом запуска или уровнем выше
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envPath, err)
		}
	}

	v := viper.New()
	switch {
	case file != "":
		v.SetConfigFile(file)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, defaultConfigDir))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := load(v)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return cfg, nil
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("CHECKLIST_SAVE_EVERY", 5)
	v.SetDefault("EMERGENCY_AUTOSAVE_INTERVAL", "30s")
	v.SetDefault("PROBE_SCHEDULE", "@every 15s")
	v.SetDefault("QUEUE_MAX_ATTEMPTS", 0)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("QUEUE_RETENTION", "168h")
}

func load(v *viper.Viper) (*Config, error) {
	// относительный CONFIG_DIR по умолчанию кладем в домашний каталог
	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		if home, err := os.UserHomeDir(); err == nil {
			configDir = filepath.Join(home, configDir)
		}
	}

	queueDB := v.GetString("QUEUE_DB_PATH")
	if queueDB == "" {
		queueDB = filepath.Join(configDir, defaultQueueDB)
	}

	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		ServerAddress:      v.GetString("SERVER_ADDRESS"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		ConfigDir:          configDir,
		QueueDBPath:        queueDB,
		TechnicianID:       v.GetString("TECHNICIAN_ID"),
		EnableTLS:          v.GetBool("ENABLE_TLS"),
		ChecklistSaveEvery: v.GetInt("CHECKLIST_SAVE_EVERY"),
		EmergencyAutoSave:  v.GetDuration("EMERGENCY_AUTOSAVE_INTERVAL"),
		ProbeSchedule:      v.GetString("PROBE_SCHEDULE"),
		QueueMaxAttempts:   v.GetInt("QUEUE_MAX_ATTEMPTS"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		QueueRetention:     v.GetDuration("QUEUE_RETENTION"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.ChecklistSaveEvery < 1 {
		return fmt.Errorf("checklist_save_every must be positive, got %d", c.ChecklistSaveEvery)
	}
	if c.EmergencyAutoSave <= 0 {
		return fmt.Errorf("emergency_autosave_interval must be positive")
	}
	if c.QueueMaxAttempts < 0 {
		return fmt.Errorf("queue_max_attempts must not be negative")
	}
	if c.QueueRetention < 0 {
		return fmt.Errorf("queue_retention must not be negative")
	}
	return nil
}

// BaseURL - адрес шлюза со схемой
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
