package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultSite        = "datadoghq.com"
	DefaultTransport   = TransportStdio
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 18790
	DefaultLogLevel    = "info"
	DefaultServiceName = "datadog-mcp"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

type Config struct {
	Datadog   DatadogConfig   `json:"datadog"`
	Server    ServerConfig    `json:"server"`
	Log       LogConfig       `json:"log"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

type DatadogConfig struct {
	APIKey string `json:"apiKey"`
	AppKey string `json:"appKey"`
	Site   string `json:"site"`
	// BaseURL replaces https://api.<site> when set; used for proxies and tests.
	BaseURL string `json:"baseUrl,omitempty"`
}

type ServerConfig struct {
	Transport string `json:"transport"` // "stdio" (default), "sse" or "http"
	Host      string `json:"host"`
	Port      int    `json:"port"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type TelemetryConfig struct {
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Datadog: DatadogConfig{
			Site: DefaultSite,
		},
		Server: ServerConfig{
			Transport: DefaultTransport,
			Host:      DefaultHost,
			Port:      DefaultPort,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

func ConfigDir() string {
	if dir := os.Getenv("DATADOG_MCP_HOME"); dir != "" {
		return dir
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".datadog-mcp")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("DATADOG_API_KEY"); key != "" {
		cfg.Datadog.APIKey = key
	}
	if key := os.Getenv("DD_API_KEY"); key != "" && cfg.Datadog.APIKey == "" {
		cfg.Datadog.APIKey = key
	}
	if key := os.Getenv("DATADOG_APP_KEY"); key != "" {
		cfg.Datadog.AppKey = key
	}
	if key := os.Getenv("DD_APP_KEY"); key != "" && cfg.Datadog.AppKey == "" {
		cfg.Datadog.AppKey = key
	}
	if site := os.Getenv("DATADOG_SITE"); site != "" {
		cfg.Datadog.Site = site
	}
	if transport := os.Getenv("DATADOG_MCP_TRANSPORT"); transport != "" {
		cfg.Server.Transport = transport
	}
	if host := os.Getenv("DATADOG_MCP_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("DATADOG_MCP_PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("parse DATADOG_MCP_PORT: %w", err)
		}
		cfg.Server.Port = parsed
	}
	if level := os.Getenv("DATADOG_MCP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Telemetry.Endpoint = endpoint
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		cfg.Telemetry.ServiceName = name
	}

	if cfg.Datadog.Site == "" {
		cfg.Datadog.Site = DefaultSite
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = DefaultTransport
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file holds API keys.
	return os.WriteFile(ConfigPath(), data, 0600)
}

// Validate reports every problem that would stop the server from starting.
// Credentials are only checked when requireKeys is set, so the catalogue can
// be listed on a fresh install.
func (c *Config) Validate(requireKeys bool) error {
	var errs []error

	switch c.Server.Transport {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (want stdio, sse or http)", c.Server.Transport))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if requireKeys {
		if c.Datadog.APIKey == "" {
			errs = append(errs, errors.New("datadog api key is not set (DATADOG_API_KEY)"))
		}
		if c.Datadog.AppKey == "" {
			errs = append(errs, errors.New("datadog application key is not set (DATADOG_APP_KEY)"))
		}
	}

	return errors.Join(errs...)
}
