package config

import (
	"log/slog"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"REGON_API_KEY", "REGON_API_URL", "REGON_UPSTREAM_TIMEOUT", "REGON_EXPOSE_ERRORS",
		"REGON_ADDR", "REGON_FUNCTIONS_CUSTOMHANDLER_PORT", "FUNCTIONS_CUSTOMHANDLER_PORT",
		"REGON_LOG_LEVEL", "LOG_LEVEL", "REGON_TRUSTED_PROXIES", "TRUSTED_PROXIES",
	} {
		unsetenv(t, key)
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://wyszukiwarkaregon.stat.gov.pl/wsBIR/UslugaBIRzewnPubl.svc", cfg.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.ExposeErrors)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, int64(64<<10), cfg.MaxBodyBytes)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestFromEnv_Overrides(t *testing.T) {
	unsetenv(t, "REGON_LOG_LEVEL")
	unsetenv(t, "REGON_FUNCTIONS_CUSTOMHANDLER_PORT")
	t.Setenv("REGON_API_KEY", "abc")
	t.Setenv("REGON_API_URL", "https://bir.test/UslugaBIRzewnPubl.svc")
	t.Setenv("REGON_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("REGON_EXPOSE_ERRORS", "false")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REGON_TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.APIKey)
	assert.Equal(t, "https://bir.test/UslugaBIRzewnPubl.svc", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.ExposeErrors)
	assert.Equal(t, ":7071", cfg.ListenAddr())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.5/32"),
	}, prefixes)
}

func TestValidate(t *testing.T) {
	valid := func() *Server {
		return &Server{
			APIKey:          "abcde12345abcde12345",
			Endpoint:        "https://bir.test/svc",
			UpstreamTimeout: time.Second,
			MaxBodyBytes:    1024,
			LogLevel:        "info",
		}
	}

	assert.NoError(t, valid().Validate())

	tests := map[string]func(*Server){
		"bad endpoint":      func(s *Server) { s.Endpoint = "not a url" },
		"zero timeout":      func(s *Server) { s.UpstreamTimeout = 0 },
		"zero body limit":   func(s *Server) { s.MaxBodyBytes = 0 },
		"unknown log level": func(s *Server) { s.LogLevel = "verbose" },
		"bad proxy":         func(s *Server) { s.TrustedProxies = []string{"10.0.0.0/33"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFromEnv_BlankAPIKey(t *testing.T) {
	unsetenv(t, "REGON_LOG_LEVEL")
	unsetenv(t, "LOG_LEVEL")
	unsetenv(t, "REGON_TRUSTED_PROXIES")
	unsetenv(t, "TRUSTED_PROXIES")
	t.Setenv("REGON_API_KEY", "  ")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
