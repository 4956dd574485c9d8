package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env     string
	DB      DB
	Server  Server
	Storage Storage
	Logger  Logger
}

type DB struct {
	DatabaseURI string `mapstructure:"database_uri"`
	Migrations  string `mapstructure:"migrations_path"`
}

type Server struct {
	RunAddress  string   `mapstructure:"run_address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Storage - корень файлового хранилища и базовый адрес публичных ссылок.
type Storage struct {
	Root          string `mapstructure:"storage_root"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type Logger struct {
	LogLevel string `mapstructure:"log_level"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("log_level", "info")
	v.SetDefault("run_address", ":8080")
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("storage_root", "data/files")
	v.SetDefault("public_base_url", "http://localhost:8080/files")
	v.SetDefault("cors_origins", "*")
}

// MustLoad читает .env (если он есть) и переменные окружения.
func MustLoad() *Config {
	// .env не обязателен
	_ = godotenv.Load(envPath)

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return load(v)
}

func load(v *viper.Viper) *Config {
	return &Config{
		Env: v.GetString("app_env"),
		DB: DB{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: Server{
			RunAddress:  v.GetString("run_address"),
			CORSOrigins: splitList(v.GetString("cors_origins")),
		},
		Storage: Storage{
			Root:          v.GetString("storage_root"),
			PublicBaseURL: strings.TrimRight(v.GetString("public_base_url"), "/"),
		},
		Logger: Logger{LogLevel: v.GetString("log_level")},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
