package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	OwnerID       int64
	DatabaseURL   string
	CheckInterval time.Duration
	BackupTime    string
	Location      *time.Location
	LogDir        string
}

// Load reads configuration from environment variables with sane defaults.
// Variables from envFile (when it exists) fill in anything not already set.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CheckInterval: parseMinutes(strings.TrimSpace(os.Getenv("CHECK_INTERVAL_MINUTES"))),
		BackupTime:    strings.TrimSpace(os.Getenv("BACKUP_TIME")),
		LogDir:        strings.TrimSpace(os.Getenv("LOG_DIR")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_queue.db"
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.BackupTime == "" {
		cfg.BackupTime = "12:00"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}

	tz := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tz == "" {
		tz = "Asia/Jakarta"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	rawOwner := strings.TrimSpace(os.Getenv("OWNER_ID"))
	if rawOwner == "" {
		return cfg, fmt.Errorf("OWNER_ID is required")
	}
	owner, err := strconv.ParseInt(rawOwner, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("OWNER_ID must be a Telegram user id: %w", err)
	}
	cfg.OwnerID = owner

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := time.ParseDuration(raw + "m")
	if err != nil || minutes <= 0 {
		return 0
	}
	return minutes
}
