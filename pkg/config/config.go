package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config represents the complete configuration for the resolver service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	Schema     SchemaConfig     `koanf:"schema"     validate:"required"`
	Presets    PresetsConfig    `koanf:"presets"    validate:"required"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535" env:"PORT"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"min=0"           env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"min=0"           env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"           env:"SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"   validate:"min=1"           env:"SERVER_MAX_BODY_BYTES"`
}

// FullAddress returns host:port suitable for net.Listen.
func (s ServerConfig) FullAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled" env:"LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                                   env:"LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                                 env:"LOG_SOURCE"`
}

// Schema compilation modes.
const (
	CompileEager = "eager"
	CompileLazy  = "lazy"
)

// SchemaConfig controls where the Renovate schema comes from and when it is compiled.
type SchemaConfig struct {
	URL         string        `koanf:"url"          validate:"required_without=File"            env:"SCHEMA_URL"`
	File        string        `koanf:"file"                                                        env:"SCHEMA_FILE"`
	CompileMode string        `koanf:"compile_mode" validate:"oneof=eager lazy"                    env:"SCHEMA_COMPILE_MODE"`
	Timeout     time.Duration `koanf:"timeout"      validate:"min=0"                               env:"SCHEMA_TIMEOUT"`
	MaxRetries  int           `koanf:"max_retries"  validate:"min=0,max=10"                        env:"SCHEMA_MAX_RETRIES"`
}

// PresetsConfig configures the preset resolution engine.
type PresetsConfig struct {
	GitHubAPIURL   string          `koanf:"github_api_url"   validate:"required,url" env:"PRESETS_GITHUB_API_URL"`
	GitLabAPIURL   string          `koanf:"gitlab_api_url"   validate:"required,url" env:"PRESETS_GITLAB_API_URL"`
	NPMRegistryURL string          `koanf:"npm_registry_url" validate:"required,url" env:"PRESETS_NPM_REGISTRY_URL"`
	GitHubToken    SensitiveString `koanf:"github_token"                             env:"GITHUB_TOKEN" sensitive:"true"`
	GitLabToken    SensitiveString `koanf:"gitlab_token"                             env:"GITLAB_TOKEN" sensitive:"true"`
	LocalPlatform  string          `koanf:"local_platform"   validate:"oneof=github gitlab" env:"PRESETS_LOCAL_PLATFORM"`
	Timeout        time.Duration   `koanf:"timeout"          validate:"min=0"        env:"PRESETS_TIMEOUT"`
	MaxRetries     int             `koanf:"max_retries"      validate:"min=0,max=10" env:"PRESETS_MAX_RETRIES"`
	CacheSize      int             `koanf:"cache_size"       validate:"min=1"        env:"PRESETS_CACHE_SIZE"`
	CacheTTL       time.Duration   `koanf:"cache_ttl"        validate:"min=0"        env:"PRESETS_CACHE_TTL"`
	MaxDepth       int             `koanf:"max_depth"        validate:"min=1,max=50" env:"PRESETS_MAX_DEPTH"`
}

// MonitoringConfig controls the Prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled"                      env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    validate:"startswith=/" env:"MONITORING_PATH"`
}

// RateLimitConfig limits /resolve per client IP. A zero Limit disables it.
type RateLimitConfig struct {
	Limit  int64         `koanf:"limit"  validate:"min=0" env:"RATE_LIMIT"`
	Period time.Duration `koanf:"period" validate:"min=0" env:"RATE_LIMIT_PERIOD"`
}

// SensitiveString hides its value when printed or logged.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Schema: SchemaConfig{
			URL:         "https://docs.renovatebot.com/renovate-schema.json",
			CompileMode: CompileEager,
			Timeout:     30 * time.Second,
			MaxRetries:  2,
		},
		Presets: PresetsConfig{
			GitHubAPIURL:   "https://api.github.com",
			GitLabAPIURL:   "https://gitlab.com/api/v4",
			NPMRegistryURL: "https://registry.npmjs.org",
			LocalPlatform:  "github",
			Timeout:        20 * time.Second,
			MaxRetries:     2,
			CacheSize:      256,
			CacheTTL:       15 * time.Minute,
			MaxDepth:       10,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		RateLimit: RateLimitConfig{
			Period: time.Minute,
		},
	}
}
