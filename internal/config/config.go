// Package config содержит логику чтения конфигурации наблюдателя подписки E5.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации наблюдателя подписки E5.
type Config struct {
	TenantID     string `env:"TENANT_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	SnapshotFile   string `env:"SNAPSHOT_FILE"`
	LedgerFile     string `env:"LEDGER_FILE"`
	RecipientsFile string `env:"RECIPIENTS_FILE"`

	RunAddress    string        `env:"RUN_ADDRESS"`
	Serve         bool          `env:"SERVE"`
	CheckInterval time.Duration `env:"CHECK_INTERVAL"`
	Timezone      string        `env:"TIMEZONE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envSnapshotFile := cfg.SnapshotFile
	envLedgerFile := cfg.LedgerFile
	envRecipientsFile := cfg.RecipientsFile
	envRunAddress := cfg.RunAddress
	envServe := cfg.Serve
	envCheckInterval := cfg.CheckInterval
	envTimezone := cfg.Timezone

	flag.StringVar(&cfg.SnapshotFile, "o", "output/output.json", "path to the snapshot file")
	flag.StringVar(&cfg.LedgerFile, "l", "output/ledger.json", "path to the notification ledger file")
	flag.StringVar(&cfg.RecipientsFile, "c", "recipients.json", "path to the recipients file")
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for the dashboard HTTP server")
	flag.BoolVar(&cfg.Serve, "serve", false, "run the dashboard server with periodic checks instead of a single run")
	flag.DurationVar(&cfg.CheckInterval, "interval", 2*time.Hour, "interval between checks in serve mode")

	flag.Parse()

	if envSnapshotFile != "" {
		cfg.SnapshotFile = envSnapshotFile
	}
	if envLedgerFile != "" {
		cfg.LedgerFile = envLedgerFile
	}
	if envRecipientsFile != "" {
		cfg.RecipientsFile = envRecipientsFile
	}
	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envServe {
		cfg.Serve = true
	}
	if envCheckInterval > 0 {
		cfg.CheckInterval = envCheckInterval
	}
	if envTimezone != "" {
		cfg.Timezone = envTimezone
	}

	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Shanghai"
	}

	return cfg, nil
}

// Validate проверяет наличие обязательных параметров.
func (c *Config) Validate() error {
	if c.TenantID == "" || c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("TENANT_ID, CLIENT_ID and CLIENT_SECRET are required")
	}
	if c.SMTPHost == "" || c.SMTPFrom == "" {
		return errors.New("SMTP_HOST and SMTP_FROM are required")
	}
	return nil
}
