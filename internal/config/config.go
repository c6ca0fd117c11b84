package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bananalabs-oss/potassium/config"
	"github.com/joho/godotenv"

	"github.com/bananalabs-oss/stocking/internal/models"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Host            string
	Port            string
	DatabaseURL     string
	RedisURL        string
	ServiceToken    string
	PublicURL       string
	MinParticipants int
	DrawAttempts    int
	CORSOrigins     []string
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads the server configuration. SERVICE_TOKEN is required.
func Load() (Config, error) {
	cfg := Config{
		Host:         config.EnvOrDefault("HOST", "0.0.0.0"),
		Port:         config.EnvOrDefault("PORT", "8004"),
		DatabaseURL:  config.EnvOrDefault("DATABASE_URL", "sqlite://stocking.db"),
		RedisURL:     config.EnvOrDefault("REDIS_URL", ""),
		ServiceToken: config.RequireEnv("SERVICE_TOKEN"),
		PublicURL:    strings.TrimRight(config.EnvOrDefault("PUBLIC_URL", "http://localhost:8004"), "/"),
	}

	var err error
	if cfg.MinParticipants, err = intEnv("MIN_PARTICIPANTS", models.DefaultMinPlayers); err != nil {
		return cfg, err
	}
	if cfg.MinParticipants < 2 {
		cfg.MinParticipants = 2
	}
	if cfg.DrawAttempts, err = intEnv("DRAW_ATTEMPTS", models.DefaultDrawRetries); err != nil {
		return cfg, err
	}
	if cfg.DrawAttempts < 1 {
		return cfg, fmt.Errorf("DRAW_ATTEMPTS must be positive, got %d", cfg.DrawAttempts)
	}

	for _, origin := range strings.Split(config.EnvOrDefault("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := config.EnvOrDefault(key, strconv.Itoa(def))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}
