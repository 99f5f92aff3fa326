package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddress())
	assert.Equal(t, 150, cfg.Card.BalanceMinorUnits)
	assert.Equal(t, "1234", cfg.Card.PIN)
	assert.Equal(t, 20, cfg.Catalog.PriceMinorUnits)
	assert.Empty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.JWT.Secret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CARD_DEMO_HTTP_PORT", "5050")
	t.Setenv("CARD_DEMO_BALANCE", "40")
	t.Setenv("CARD_DEMO_DEVICE_SECRET", "s3cret")
	t.Setenv("CARD_DEMO_INSERTED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5050", cfg.HTTPAddress())
	assert.Equal(t, 40, cfg.Card.BalanceMinorUnits)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.True(t, cfg.Card.InsertedAtStart)
}
