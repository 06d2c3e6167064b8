package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "2024-10", cfg.Shopify.APIVersion)
	assert.Equal(t, 500*time.Millisecond, cfg.Shopify.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.ConfirmMaxElapsed)
	assert.Equal(t, 72*time.Hour, cfg.Reconcile.AbandonAfter)
	assert.Equal(t, 1.0, cfg.ARSRate)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(59900), cfg.Pricing.BundlePrice)
	assert.Equal(t, 3, cfg.Pricing.ComboSize)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DLOCAL_ENVIRONMENT", "production")
	t.Setenv("DLOCAL_PRODUCTION_API_KEY", "pk")
	t.Setenv("DLOCAL_PRODUCTION_SECRET_KEY", "ps")
	t.Setenv("DLOCAL_SANDBOX_API_KEY", "sk")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PROMO_COMBO_SIZE", "4")
	t.Setenv("PROMO_COMBO_PRICE", "59900")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Production())
	assert.Equal(t, "pk", cfg.DLocal.APIKey)
	assert.Equal(t, "ps", cfg.DLocal.SecretKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.Pricing.ComboSize)
	assert.Equal(t, int64(59900), cfg.Pricing.ComboPrice)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR: \":9000\"\nARS_RATE: 1.5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 1.5, cfg.ARSRate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_ListsMissing(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"SHOPIFY_STORE_DOMAIN", "SHOPIFY_ADMIN_API_TOKEN", "BASE_URL", "DLOCAL_SANDBOX_API_KEY", "DLOCAL_SANDBOX_SECRET_KEY"} {
		assert.Contains(t, err.Error(), key)
	}

	cfg.Shopify.StoreDomain = "foltz.myshopify.com"
	cfg.Shopify.AdminToken = "shpat"
	cfg.BaseURL = "https://foltzoficial.com"
	cfg.DLocal.APIKey = "k"
	cfg.DLocal.SecretKey = "s"
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadDurations(t *testing.T) {
	t.Setenv("SHOPIFY_STORE_DOMAIN", "foltz.myshopify.com")
	t.Setenv("SHOPIFY_ADMIN_API_TOKEN", "shpat")
	t.Setenv("BASE_URL", "https://foltzoficial.com")
	t.Setenv("DLOCAL_SANDBOX_API_KEY", "k")
	t.Setenv("DLOCAL_SANDBOX_SECRET_KEY", "s")
	t.Setenv("RECONCILE_INTERVAL", "soon")
	t.Setenv("UPSTREAM_TIMEOUT", "0s")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONCILE_INTERVAL")
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
	assert.NotContains(t, err.Error(), "missing required configuration")
	assert.NotContains(t, err.Error(), "CONFIRM_MAX_ELAPSED")
}
