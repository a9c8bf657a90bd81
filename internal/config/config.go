// Package config содержит логику чтения конфигурации инвестиционной платформы.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmeshcher/investplatform/internal/model"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
	AdminToken  string `env:"ADMIN_TOKEN"`

	Timezone             string       `env:"TIMEZONE" envDefault:"Africa/Luanda"`
	ReferralBonus        model.Amount `env:"REFERRAL_BONUS" envDefault:"100.00"`
	MinWithdrawal        model.Amount `env:"MIN_WITHDRAWAL" envDefault:"1500.00"`
	WithdrawalTaxPercent model.Rate   `env:"WITHDRAWAL_TAX_PERCENT" envDefault:"5.00"`
	WheelDailySpins      int          `env:"WHEEL_DAILY_SPINS" envDefault:"1"`
	InviteCodeLength     int          `env:"INVITE_CODE_LENGTH" envDefault:"10"`
	AccrualSkipWeekends  bool         `env:"ACCRUAL_SKIP_WEEKENDS" envDefault:"true"`
	AccrualSchedule      string       `env:"ACCRUAL_SCHEDULE"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	CookieSecure   bool    `env:"COOKIE_SECURE" envDefault:"false"`
	TrustProxy     bool    `env:"TRUST_PROXY" envDefault:"false"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config содержит параметры хранилища подтверждений оплаты.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"auto"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Enabled сообщает, настроено ли хранилище.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envAdminToken := cfg.AdminToken

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing session cookies")
	flag.StringVar(&cfg.AdminToken, "t", "", "bearer token for the admin API")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envAdminToken != "" {
		cfg.AdminToken = envAdminToken
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.WheelDailySpins < 0 {
		return fmt.Errorf("WHEEL_DAILY_SPINS must not be negative, got %d", c.WheelDailySpins)
	}
	if c.InviteCodeLength < 6 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be at least 6, got %d", c.InviteCodeLength)
	}
	if c.ReferralBonus < 0 || c.MinWithdrawal < 0 {
		return errors.New("money settings must not be negative")
	}
	return nil
}

// Location возвращает часовой пояс бизнес-календаря. Если база часовых поясов недоступна,
// используется фиксированное смещение UTC+1 (время Луанды).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("WAT", 60*60)
	}
	return loc
}
