package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "vendkiosk/backend/libs/config"
	"vendkiosk/backend/services/kiosk/internal/models"
)

// HTTPConfig is the local listener for displays and operators.
type HTTPConfig struct {
	Port string `yaml:"port" env:"KIOSK_HTTP_PORT"`
}

// BackendConfig points at the card service.
type BackendConfig struct {
	URL            string `yaml:"url" env:"KIOSK_BACKEND_URL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"KIOSK_BACKEND_TIMEOUT"`
	DeviceSecret   string `yaml:"deviceSecret" env:"KIOSK_DEVICE_SECRET"`
}

// KioskConfig identifies this kiosk.
type KioskConfig struct {
	ID string `yaml:"id" env:"KIOSK_ID"`
}

// PollingConfig tunes presence polling.
type PollingConfig struct {
	DetectInterval      time.Duration `yaml:"detectInterval"`
	MonitorInterval     time.Duration `yaml:"monitorInterval"`
	DisconnectThreshold int           `yaml:"disconnectThreshold"`
}

// TimingConfig holds the UI delays.
type TimingConfig struct {
	ConfirmDelay       time.Duration `yaml:"confirmDelay"`
	SettleDelay        time.Duration `yaml:"settleDelay"`
	RemovalNoticeDelay time.Duration `yaml:"removalNoticeDelay"`
	ErrorNoticeDelay   time.Duration `yaml:"errorNoticeDelay"`
	MinBrewDuration    time.Duration `yaml:"minBrewDuration"`
}

// CatalogConfig lists the items on offer.
type CatalogConfig struct {
	PriceMinorUnits int              `yaml:"priceMinorUnits"`
	Items           []models.ItemRef `yaml:"items"`
}

// RedisConfig enables the shared activity journal when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"KIOSK_REDIS_ADDR"`
	Password string `yaml:"password" env:"KIOSK_REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// JournalConfig sizes the activity journal.
type JournalConfig struct {
	Capacity int `yaml:"capacity"`
}

// Config defines kiosk configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Backend BackendConfig `yaml:"backend"`
	Kiosk   KioskConfig   `yaml:"kiosk"`
	Polling PollingConfig `yaml:"polling"`
	Timing  TimingConfig  `yaml:"timing"`
	Catalog CatalogConfig `yaml:"catalog"`
	Redis   RedisConfig   `yaml:"redis"`
	Journal JournalConfig `yaml:"journal"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Port: "8090"},
		Backend: BackendConfig{TimeoutSeconds: 5},
		Kiosk:   KioskConfig{ID: "kiosk-1"},
		Polling: PollingConfig{
			DetectInterval:      3 * time.Second,
			MonitorInterval:     5 * time.Second,
			DisconnectThreshold: 3,
		},
		Timing: TimingConfig{
			ConfirmDelay:       time.Second,
			SettleDelay:        3 * time.Second,
			RemovalNoticeDelay: 2 * time.Second,
			ErrorNoticeDelay:   3 * time.Second,
			MinBrewDuration:    4 * time.Second,
		},
		Catalog: CatalogConfig{
			PriceMinorUnits: 20,
			Items: []models.ItemRef{
				{ID: 1, DisplayName: "Coffee", Emoji: "☕"},
				{ID: 2, DisplayName: "Tea", Emoji: "🍵"},
				{ID: 3, DisplayName: "Hot chocolate", Emoji: "🍫"},
				{ID: 4, DisplayName: "Cappuccino", Emoji: "☕"},
			},
		},
		Journal: JournalConfig{Capacity: 20},
	}
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the kiosk cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errors.New("config: backend url required")
	}
	if c.Polling.DetectInterval <= 0 || c.Polling.MonitorInterval <= 0 {
		return errors.New("config: polling intervals must be positive")
	}
	if c.Polling.DisconnectThreshold <= 0 {
		return errors.New("config: disconnect threshold must be positive")
	}
	if c.Timing.ConfirmDelay < 0 || c.Timing.SettleDelay < 0 ||
		c.Timing.RemovalNoticeDelay < 0 || c.Timing.ErrorNoticeDelay < 0 || c.Timing.MinBrewDuration < 0 {
		return errors.New("config: timings must not be negative")
	}
	if c.Catalog.PriceMinorUnits <= 0 {
		return fmt.Errorf("config: invalid price %d", c.Catalog.PriceMinorUnits)
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// BackendTimeout returns the per-call timeout for the card service.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}
