package config_test

import (
	"testing"

	"github.com/racanlabs/go-auth-service/internal/config"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad(t *testing.T) {
	t.Run("defaults with a secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", testSecret)

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, "local", cfg.Env)
		require.Equal(t, "selfhosted", cfg.Backend)
		require.Equal(t, ":8080", cfg.Addr())
	})

	t.Run("missing secret fails", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()
		require.Error(t, err)
	})

	t.Run("short secret fails validation", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "too-short")

		_, err := config.Load()
		require.Error(t, err)
	})

	t.Run("hosted backend requires provider settings", func(t *testing.T) {
		t.Setenv("JWT_SECRET", testSecret)
		t.Setenv("AUTH_BACKEND", "hosted")

		_, err := config.Load()
		require.Error(t, err)

		t.Setenv("HOSTED_AUTH_URL", "https://auth.example.com")
		t.Setenv("HOSTED_AUTH_API_KEY", "provider-key")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, "hosted", cfg.Backend)
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		t.Setenv("JWT_SECRET", testSecret)
		t.Setenv("AUTH_BACKEND", "mixed")

		_, err := config.Load()
		require.Error(t, err)
	})
}

func TestOrigins(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: " https://a.example.com, https://b.example.com ,"}
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Origins())
}

func TestAddr(t *testing.T) {
	require.Equal(t, ":9090", (&config.Config{Port: "9090"}).Addr())
	require.Equal(t, ":9090", (&config.Config{Port: ":9090"}).Addr())
}
