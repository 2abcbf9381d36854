// Package config содержит логику чтения конфигурации кассы прачечной.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fahrudina/smart-laundry-pos-sub002/internal/model"
	"github.com/fahrudina/smart-laundry-pos-sub002/internal/pricing"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	WhatsAppAPIURL  string `env:"WHATSAPP_API_URL"`
	WhatsAppAPIKey  string `env:"WHATSAPP_API_KEY"`
	WhatsAppEnabled bool   `env:"WHATSAPP_ENABLED" envDefault:"false"`

	PointsEnabled        bool   `env:"POINTS_ENABLED" envDefault:"true"`
	PointsConversionRate int64  `env:"POINTS_CONVERSION_RATE" envDefault:"100"`
	DurationTypesEnabled bool   `env:"DURATION_TYPES_ENABLED" envDefault:"true"`
	DefaultDurationValue int    `env:"DEFAULT_DURATION_VALUE" envDefault:"3"`
	DefaultDurationUnit  string `env:"DEFAULT_DURATION_UNIT" envDefault:"days"`
	Timezone             string `env:"TIMEZONE" envDefault:"Asia/Jakarta"`
}

// Parse считывает конфигурацию из файла .env, переменных окружения и флагов командной строки.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// Файл .env необязателен.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envWhatsAppURL := cfg.WhatsAppAPIURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")
	flag.StringVar(&cfg.WhatsAppAPIURL, "w", "", "WhatsApp gateway URL")

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
	if envWhatsAppURL != "" {
		cfg.WhatsAppAPIURL = envWhatsAppURL
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
	if c.PointsConversionRate <= 0 {
		return errors.New("points conversion rate must be positive")
	}
	if c.DefaultDurationValue <= 0 {
		return errors.New("default duration must be positive")
	}
	switch model.DurationUnit(c.DefaultDurationUnit) {
	case model.DurationHours, model.DurationDays:
	default:
		return fmt.Errorf("unknown default duration unit %q", c.DefaultDurationUnit)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	return nil
}

// PricingOptions собирает настройки расчёта заказа.
func (c *Config) PricingOptions() pricing.Options {
	return pricing.Options{
		ConversionRate:       decimal.NewFromInt(c.PointsConversionRate),
		PointsEnabled:        c.PointsEnabled,
		DurationTypesEnabled: c.DurationTypesEnabled,
		DefaultDuration: model.Duration{
			Value: c.DefaultDurationValue,
			Unit:  model.DurationUnit(c.DefaultDurationUnit),
		},
	}
}

// Location возвращает часовой пояс точки.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
