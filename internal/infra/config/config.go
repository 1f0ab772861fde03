package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App        AppSettings        `mapstructure:"app"`
	Postgres   PostgresSettings   `mapstructure:"postgres"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	Gateway    GatewaySettings    `mapstructure:"gateway"`
	AuthClient AuthClientSettings `mapstructure:"auth_client"`
	Resilience ResilienceSettings `mapstructure:"resilience"`
	RateLimit  RateLimitSettings  `mapstructure:"rate_limit"`
	Telemetry  TelemetrySettings  `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the revocation cache and rate-limit windows.
type RedisSettings struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	DB               int           `mapstructure:"db"`
	Password         string        `mapstructure:"password"`
	TLSEnabled       bool          `mapstructure:"tls_enabled"`
	RevocationPrefix string        `mapstructure:"revocation_prefix"`
	NegativeTTL      time.Duration `mapstructure:"negative_ttl"`
}

// KafkaSettings configures revocation event fan-out.
type KafkaSettings struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	Async         bool     `mapstructure:"async"`
}

// JWTSettings carries the shared HMAC signing material and token lifetime.
// The secret must decode to at least 64 bytes; HS512 everywhere, issuer and
// verifiers alike.
type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// GatewayRoute maps a path prefix to an upstream service.
type GatewayRoute struct {
	Prefix   string `mapstructure:"prefix"`
	Upstream string `mapstructure:"upstream"`
}

// GatewaySettings configures the perimeter proxy.
type GatewaySettings struct {
	PublicPrefixes []string       `mapstructure:"public_prefixes"`
	Routes         []GatewayRoute `mapstructure:"routes"`
}

// AuthClientSettings configures downstream access to the identity provider.
type AuthClientSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerSettings tunes the circuit breaker guarding the identity provider.
type BreakerSettings struct {
	WindowSize           int           `mapstructure:"window_size"`
	MinCalls             int           `mapstructure:"min_calls"`
	FailureRateThreshold float64       `mapstructure:"failure_rate_threshold"`
	OpenWait             time.Duration `mapstructure:"open_wait"`
	HalfOpenTrials       int           `mapstructure:"half_open_trials"`
}

// RetrySettings tunes the retry policy wrapped by the breaker.
type RetrySettings struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Wait              time.Duration `mapstructure:"wait"`
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout"`
}

type ResilienceSettings struct {
	Breaker BreakerSettings `mapstructure:"breaker"`
	Retry   RetrySettings   `mapstructure:"retry"`
}

// RateLimitSettings configures the login sliding window.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Enabled      bool    `mapstructure:"enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GENZF")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.revocation_prefix",
		"redis.negative_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.consumer_group",
		"kafka.async",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"gateway.public_prefixes",
		"auth_client.base_url",
		"auth_client.timeout",
		"resilience.breaker.window_size",
		"resilience.breaker.min_calls",
		"resilience.breaker.failure_rate_threshold",
		"resilience.breaker.open_wait",
		"resilience.breaker.half_open_trials",
		"resilience.retry.max_attempts",
		"resilience.retry.wait",
		"resilience.retry.per_attempt_timeout",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"telemetry.enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "genzf-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8081)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "genzf")
	v.SetDefault("postgres.password", "genzf_password")
	v.SetDefault("postgres.database", "genzf")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.revocation_prefix", "genzf:revoked")
	v.SetDefault("redis.negative_ttl", "30s")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "genzf")
	v.SetDefault("kafka.consumer_group", "genzf-denylist")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.issuer", "genzf.qnit18.com")
	v.SetDefault("jwt.access_token_ttl", "1h")

	v.SetDefault("gateway.public_prefixes", []string{
		"/auth/token",
		"/auth/register",
		"/auth/introspect",
		"/healthz",
		"/readyz",
		"/error",
	})
	v.SetDefault("gateway.routes", []map[string]string{
		{"prefix": "/auth", "upstream": "http://localhost:8081"},
		{"prefix": "/users", "upstream": "http://localhost:8081"},
		{"prefix": "/portfolios", "upstream": "http://localhost:8082"},
	})

	v.SetDefault("auth_client.base_url", "http://localhost:8081")
	v.SetDefault("auth_client.timeout", "2s")

	v.SetDefault("resilience.breaker.window_size", 10)
	v.SetDefault("resilience.breaker.min_calls", 5)
	v.SetDefault("resilience.breaker.failure_rate_threshold", 0.5)
	v.SetDefault("resilience.breaker.open_wait", "5s")
	v.SetDefault("resilience.breaker.half_open_trials", 3)

	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.wait", "1s")
	v.SetDefault("resilience.retry.per_attempt_timeout", "2s")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "genzf")
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.enabled", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "GENZF_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
