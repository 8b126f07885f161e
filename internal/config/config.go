package config

import "time"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Translation TranslationConfig `yaml:"translation"`
	Detector    DetectorConfig    `yaml:"detector"`
	Cache       CacheConfig       `yaml:"cache"`
	Limiter     LimiterConfig     `yaml:"limiter"`
	Context     ContextConfig     `yaml:"context"`
	Policy      PolicyConfig      `yaml:"policy"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	s := ""
	for i > 0 {
		s = string(rune('0'+i%10)) + s
		i /= 10
	}
	return s
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// TranslationConfig governs language handling and the failover engine.
type TranslationConfig struct {
	// Languages is the allowed language set. Messages declaring or targeting
	// a language outside this set are rejected before any backend call.
	Languages []string `yaml:"languages"`
	// DefaultSourceLang is used when detection confidence stays below the
	// detector threshold and the conversation has no dominant language.
	DefaultSourceLang string `yaml:"default_source_lang"`
	// DefaultTargetLang is applied when the client omits targetLang.
	// Empty disables the implicit target and makes targetLang mandatory.
	DefaultTargetLang string `yaml:"default_target_lang"`

	AttemptTimeout time.Duration        `yaml:"attempt_timeout"`
	MaxRetries     int                  `yaml:"max_retries"`
	RetryBackoff   time.Duration        `yaml:"retry_backoff"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

type DetectorConfig struct {
	// ConfidenceThreshold below which the coordinator falls back to the
	// conversation's dominant language or the configured default.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MinTextLength       int     `yaml:"min_text_length"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

type LimiterConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxQueueDepth int           `yaml:"max_queue_depth"`
	QueueTimeout  time.Duration `yaml:"queue_timeout"`

	// Per-client HTTP-level protections (Redis-backed, fail open).
	RequestsPerMinute int   `yaml:"requests_per_minute"`
	DailyCharQuota    int64 `yaml:"daily_char_quota"`
}

// ContextConfig bounds the per-conversation translation context.
type ContextConfig struct {
	Depth         int           `yaml:"depth"`
	Conversations int           `yaml:"conversations"`
	TTL           time.Duration `yaml:"ttl"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "cxchat",
			User:            "cxchat",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Translation: TranslationConfig{
			Languages:         []string{"en", "ru", "es", "de", "fr", "tr", "uk", "kk", "uz", "az"},
			DefaultSourceLang: "en",
			DefaultTargetLang: "",
			AttemptTimeout:    15 * time.Second,
			MaxRetries:        2,
			RetryBackoff:      200 * time.Millisecond,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
		Detector: DetectorConfig{
			ConfidenceThreshold: 0.6,
			MinTextLength:       4,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 10_000,
			TTL:      time.Hour,
		},
		Limiter: LimiterConfig{
			MaxConcurrent:     32,
			MaxQueueDepth:     64,
			QueueTimeout:      2 * time.Second,
			RequestsPerMinute: 120,
			DailyCharQuota:    0, // 0 = unlimited
		},
		Context: ContextConfig{
			Depth:         16,
			Conversations: 4096,
			TTL:           30 * time.Minute,
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
	}
}
