package config

import (
	"errors"
	"fmt"
	"strings"

	libconfig "vendkiosk/backend/libs/config"
	"vendkiosk/backend/services/card-demo/internal/models"
)

// HTTPConfig is the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"CARD_DEMO_HTTP_PORT"`
}

// JWTConfig enables device authentication when Secret is set.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"CARD_DEMO_DEVICE_SECRET"`
}

// DatabaseConfig enables the debit ledger when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"CARD_DEMO_POSTGRES_DSN"`
}

// CardConfig is the factory state of the simulated card.
type CardConfig struct {
	BalanceMinorUnits int    `yaml:"balanceMinorUnits" env:"CARD_DEMO_BALANCE"`
	PIN               string `yaml:"pin" env:"CARD_DEMO_PIN"`
	StudentNumber     string `yaml:"studentNumber" env:"CARD_DEMO_STUDENT_NUMBER"`
	MaxPINAttempts    int    `yaml:"maxPinAttempts"`
	BcryptCost        int    `yaml:"bcryptCost"`
	InsertedAtStart   bool   `yaml:"insertedAtStart" env:"CARD_DEMO_INSERTED"`
}

// CatalogConfig lists the items sold.
type CatalogConfig struct {
	PriceMinorUnits int           `yaml:"priceMinorUnits"`
	Items           []models.Item `yaml:"items"`
}

// Config defines card demo configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	JWT      JWTConfig      `yaml:"jwt"`
	Database DatabaseConfig `yaml:"database"`
	Card     CardConfig     `yaml:"card"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// Default returns the demo card setup.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: "5000"},
		Card: CardConfig{
			BalanceMinorUnits: 150,
			PIN:               "1234",
			StudentNumber:     "E0001",
			MaxPINAttempts:    3,
		},
		Catalog: CatalogConfig{
			PriceMinorUnits: 20,
			Items: []models.Item{
				{ID: 1, Name: "Coffee", Emoji: "☕"},
				{ID: 2, Name: "Tea", Emoji: "🍵"},
				{ID: 3, Name: "Hot chocolate", Emoji: "🍫"},
				{ID: 4, Name: "Cappuccino", Emoji: "☕"},
			},
		},
	}
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Catalog.PriceMinorUnits <= 0 {
		return nil, fmt.Errorf("config: invalid price %d", cfg.Catalog.PriceMinorUnits)
	}
	if len(cfg.Catalog.Items) == 0 {
		return nil, errors.New("config: no items configured")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "5000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
