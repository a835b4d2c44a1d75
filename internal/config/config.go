// Package config loads and validates gateway configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends accepted by store.backend.
const (
	BackendMemory        = "memory"
	BackendPostgres      = "postgres"
	BackendRedis         = "redis"
	BackendElasticsearch = "elasticsearch"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Site          SiteConfig          `mapstructure:"site"`
	Classifier    ClassifierConfig    `mapstructure:"classifier"`
	Views         ViewsConfig         `mapstructure:"views"`
	Store         StoreConfig         `mapstructure:"store"`
	DB            DBConfig            `mapstructure:"db"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	ReadHeaderTimeoutMs   int `mapstructure:"read_header_timeout_ms"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// SiteConfig describes the public site the previews point at.
type SiteConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	Name               string `mapstructure:"name"`
	DefaultCoverURL    string `mapstructure:"default_cover_url"`
	DefaultDescription string `mapstructure:"default_description"`
}

// ClassifierConfig extends the built-in crawler signatures.
type ClassifierConfig struct {
	ExtraSignatures []string `mapstructure:"extra_signatures"`
}

// ViewsConfig controls the view counter side effect.
type ViewsConfig struct {
	IncrementTimeoutMs int  `mapstructure:"increment_timeout_ms"`
	Async              bool `mapstructure:"async"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	Collection string `mapstructure:"collection"`
	SeedFile   string `mapstructure:"seed_file"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
}

// RedisConfig points at a Redis deployment holding story hashes.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ElasticsearchConfig points at the cluster holding the stories index.
type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// PubSubConfig holds metadata for view notifications. A topic without a
// project keeps events in process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RateLimitConfig toggles the per-client limiter on preview routes.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// ProjectID, when set, exports spans to Google Cloud Trace.
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms inject the listen port as a bare PORT variable.
	if err := v.BindEnv("server.port", "PREVIEW_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout_ms", 5000)
	v.SetDefault("server.request_timeout_seconds", 15)
	v.SetDefault("site.base_url", "https://storyplugs.netlify.app")
	v.SetDefault("site.name", "StoryPlugs")
	v.SetDefault("site.default_cover_url", "https://storyplugs.netlify.app/default-cover.png")
	v.SetDefault("site.default_description", "Read this story on StoryPlugs.")
	v.SetDefault("classifier.extra_signatures", []string{})
	v.SetDefault("views.increment_timeout_ms", 2000)
	v.SetDefault("views.async", false)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.collection", "stories")
	v.SetDefault("store.seed_file", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_seconds", 1800)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "story")
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.max_retries", 3)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.rps", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "story-preview-gateway")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL")
	}
	if c.Views.IncrementTimeoutMs <= 0 {
		return fmt.Errorf("views.increment_timeout_ms must be > 0")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when store.backend is postgres")
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must be set when store.backend is redis")
		}
	case BackendElasticsearch:
		if len(c.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("elasticsearch.addresses must be set when store.backend is elasticsearch")
		}
	default:
		return fmt.Errorf("store.backend %q is not supported", c.Store.Backend)
	}
	if c.Store.Backend != BackendMemory && c.Store.Collection == "" {
		return fmt.Errorf("store.collection must be set")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be > 0 when rate limiting is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ReadHeaderTimeout converts server.read_header_timeout_ms into a duration.
func (c Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutMs) * time.Millisecond
}

// RequestTimeout bounds each preview request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// IncrementTimeout bounds the detached view increment.
func (c Config) IncrementTimeout() time.Duration {
	return time.Duration(c.Views.IncrementTimeoutMs) * time.Millisecond
}

// MaxConnLifetime converts db.max_conn_lifetime_seconds into a duration.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeSeconds) * time.Second
}
