package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Endpoint              string        `env:"SUMMARIZE_ENDPOINT"      envDefault:"http://127.0.0.1:8000/summarize"`
	DialTimeout           time.Duration `env:"DIAL_TIMEOUT"            envDefault:"10s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"0s"`

	ListenAddr   string        `env:"LISTEN_ADDR"    envDefault:":8000"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL"   envDefault:"gpt-4o-mini"`
	DBPath       string        `env:"DB_PATH"        envDefault:"db.sqlite"`
	SummaryTTL   time.Duration `env:"SUMMARY_TTL"    envDefault:"168h"`

	Token        string        `env:"TOKEN"`
	AllowedUsers []int64       `env:"ALLOWED_USERS"`
	EditInterval time.Duration `env:"EDIT_INTERVAL" envDefault:"1s"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads an optional .env file and parses the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}
