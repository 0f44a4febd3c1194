package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/maciegg5/regon-search/pkg/validation"
)

// Prefix is prepended to every variable name, e.g. REGON_API_KEY.
// Variables with an explicit unprefixed name (LOG_LEVEL, FUNCTIONS_CUSTOMHANDLER_PORT)
// are read under that name when the prefixed one is unset.
const Prefix = "regon"

// Server captures process level configuration.
type Server struct {
	// APIKey is the BIR user key. Unset or blank means the public test key.
	APIKey string `envconfig:"API_KEY" default:"c38c77059648411cb578"`
	// Endpoint is the BIR service URL.
	Endpoint        string        `envconfig:"API_URL" default:"https://wyszukiwarkaregon.stat.gov.pl/wsBIR/UslugaBIRzewnPubl.svc" validate:"required,url"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	// ExposeErrors puts the failure cause into 500 response bodies.
	ExposeErrors bool `envconfig:"EXPOSE_ERRORS" default:"true"`

	Addr              string        `envconfig:"ADDR" default:":8080"`
	CustomHandlerPort string        `envconfig:"FUNCTIONS_CUSTOMHANDLER_PORT"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes      int64         `envconfig:"MAX_BODY_BYTES" default:"65536" validate:"min=1"`
	TrustedProxies    []string      `envconfig:"TRUSTED_PROXIES"`

	Environment string `envconfig:"ENVIRONMENT" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// FromEnv loads an optional .env file, then builds a Server config from the environment.
// Variables already set in the environment take precedence over .env.
func FromEnv() (*Server, error) {
	_ = godotenv.Load()

	cfg := new(Server)
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// envconfig keeps a set-but-empty REGON_API_KEY; the client then uses its default.
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats that envconfig cannot express.
func (s *Server) Validate() error {
	if err := validation.Validate(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.UpstreamTimeout <= 0 {
		return fmt.Errorf("invalid config: upstream timeout must be positive, got %s", s.UpstreamTimeout)
	}
	if _, err := s.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddr is the address the HTTP server binds. The Azure Functions host
// assigns a port through FUNCTIONS_CUSTOMHANDLER_PORT, which wins over Addr.
func (s *Server) ListenAddr() string {
	if s.CustomHandlerPort != "" {
		return ":" + s.CustomHandlerPort
	}
	return s.Addr
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses are accepted as
// single-host prefixes.
func (s *Server) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

// SlogLevel maps LogLevel to a slog level.
func (s *Server) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
