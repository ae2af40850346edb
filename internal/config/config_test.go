package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "0.1", cfg.VATRate.String())
	require.Equal(t, "50000000", cfg.FreeShippingThreshold.String())
	require.Equal(t, "800000", cfg.FlatShippingFee.String())
	require.Empty(t, cfg.RedisAddr)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("VAT_RATE", "0.08")
	t.Setenv("CART_LEASE_TTL", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "0.08", cfg.VATRate.String())
	require.Equal(t, 750*time.Millisecond, cfg.CartLeaseTTL)
}

func TestLoad_RejectsNegativeRate(t *testing.T) {
	t.Setenv("VAT_RATE", "-0.1")
	_, err := Load()
	require.Error(t, err)
}
