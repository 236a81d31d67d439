package model

import "time"

// Config is the complete callaudit configuration
type Config struct {
	Rules        RulesConfig        `mapstructure:"rules" yaml:"rules"`
	Sentiment    SentimentConfig    `mapstructure:"sentiment" yaml:"sentiment"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Relay        RelayConfig        `mapstructure:"relay" yaml:"relay"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
}

// RulesConfig selects the rule table
type RulesConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`   // YAML rule table; empty uses the built-in table
	Watch bool   `mapstructure:"watch" yaml:"watch"` // Hot-reload the table on change (serve only)
}

// SentimentConfig selects the polarity scorer
type SentimentConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // lexicon, openai, anthropic, ollama
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"-"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout   int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	Cached    bool   `mapstructure:"cached" yaml:"cached"` // Memoize polarity per transcript
}

// CacheConfig controls the layered memory+disk cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// HTTPConfig controls transcript fetching
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	InsecureTLS   bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// RateLimitingConfig controls per-domain request pacing in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// ServerConfig controls the webhook server
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	SinkTimeout  time.Duration `mapstructure:"sink_timeout" yaml:"sink_timeout"`
}

// StoreConfig selects the verdict persistence sink
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, memory, none
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// RelayConfig configures forwarding verdicts to a second service
type RelayConfig struct {
	URL     string            `mapstructure:"url" yaml:"url,omitempty"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose           bool `mapstructure:"verbose" yaml:"verbose"`
	IncludeFooter     bool `mapstructure:"include_footer" yaml:"include_footer"`
	IncludeTranscript bool `mapstructure:"include_transcript" yaml:"include_transcript"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{},
		Sentiment: SentimentConfig{
			Provider:  "lexicon",
			Timeout:   30,
			MaxTokens: 16,
			Cached:    true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "CallAudit/0.1 (+https://github.com/ppiankov/callaudit)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
			SinkTimeout:  5 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    defaultStorePath(),
		},
		Relay: RelayConfig{
			Timeout: 5 * time.Second,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
