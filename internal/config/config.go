// Package config carrega a configuração do gateway: arquivo YAML opcional,
// depois variáveis de ambiente, depois validação.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"pipeline-guard/middleware/ratelimit"
	"pipeline-guard/middleware/respcache"
)

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	AdminAddr   string `yaml:"admin_addr"`
	UpstreamURL string `yaml:"upstream_url"`

	Log         LogConfig         `yaml:"log"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Stats       StatsConfig       `yaml:"stats"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// Preset fornece a base (strict, moderate, lenient); campos explícitos sobrescrevem.
	Preset             string        `yaml:"preset"`
	Window             time.Duration `yaml:"window"`
	Max                int           `yaml:"max"`
	StatusCode         int           `yaml:"status_code"`
	Message            string        `yaml:"message"`
	KeyHeader          string        `yaml:"key_header"`
	TrustXForwardedFor bool          `yaml:"trust_x_forwarded_for"`
	SkipSuccessful     bool          `yaml:"skip_successful_requests"`
	SkipFailed         bool          `yaml:"skip_failed_requests"`
	FailOpen           bool          `yaml:"fail_open"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	// CountCacheHits põe o rate limit antes do cache: respostas do cache também contam.
	CountCacheHits bool `yaml:"count_cache_hits"`
}

type CacheConfig struct {
	Enabled       bool           `yaml:"enabled"`
	Preset        string         `yaml:"preset"`
	TTL           time.Duration  `yaml:"ttl"`
	Backend       string         `yaml:"backend"` // memory | bigcache
	SweepInterval time.Duration  `yaml:"sweep_interval"`
	BigCache      BigCacheConfig `yaml:"bigcache"`
}

type BigCacheConfig struct {
	HardMaxCacheSizeMB int `yaml:"hard_max_cache_size_mb"`
	MaxEntrySize       int `yaml:"max_entry_size"`
}

type ConcurrencyConfig struct {
	Max     int           `yaml:"max"`
	Timeout time.Duration `yaml:"timeout"`
}

// StatsConfig liga o envio das decisões do rate limit para o Redis.
type StatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Bucket        string        `yaml:"bucket"`
	TrackKeys     bool          `yaml:"track_keys"`
}

const (
	BackendMemory   = "memory"
	BackendBigCache = "bigcache"
)

func Default() Config {
	return Config{
		ListenAddr: ":8080",
		AdminAddr:  ":9090",
		Log:        LogConfig{Level: "info", Format: "json"},
		RateLimit:  RateLimitConfig{Enabled: true},
		Cache:      CacheConfig{Enabled: true, Backend: BackendMemory},
		Concurrency: ConcurrencyConfig{
			Max: 100,
		},
		Stats: StatsConfig{
			Prefix: "ratelimit:stats",
			TTL:    24 * time.Hour,
			Bucket: "minute",
		},
	}
}

// Load lê o YAML em path (se path != ""), aplica o ambiente e valida.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decode(bytes.NewReader(raw), &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode YAML config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var err error

	if strings.TrimSpace(c.UpstreamURL) == "" {
		err = multierr.Append(err, errors.New("upstream_url (UPSTREAM_URL) is required"))
	} else if u, perr := url.Parse(c.UpstreamURL); perr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("upstream_url %q is not an absolute URL", c.UpstreamURL))
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	if c.RateLimit.Preset != "" {
		if _, ok := ratelimit.Preset(c.RateLimit.Preset); !ok {
			err = multierr.Append(err, fmt.Errorf("rate_limit.preset %q unknown (have %v)", c.RateLimit.Preset, ratelimit.PresetNames()))
		}
	}
	if c.RateLimit.Max < 0 {
		err = multierr.Append(err, errors.New("rate_limit.max must be >= 0"))
	}
	if c.RateLimit.Window < 0 {
		err = multierr.Append(err, errors.New("rate_limit.window must be >= 0"))
	}

	if c.Cache.Preset != "" {
		if _, ok := respcache.Preset(c.Cache.Preset); !ok {
			err = multierr.Append(err, fmt.Errorf("cache.preset %q unknown (have %v)", c.Cache.Preset, respcache.PresetNames()))
		}
	}
	if c.Cache.TTL < 0 {
		err = multierr.Append(err, errors.New("cache.ttl must be >= 0"))
	}
	switch c.Cache.Backend {
	case "", BackendMemory, BackendBigCache:
	default:
		err = multierr.Append(err, fmt.Errorf("cache.backend must be memory or bigcache, got %q", c.Cache.Backend))
	}

	if c.Concurrency.Max < 0 {
		err = multierr.Append(err, errors.New("concurrency.max must be >= 0"))
	}

	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		err = multierr.Append(err, errors.New("stats.redis_addr (RATE_STATS_REDIS_ADDR) is required when stats are enabled"))
	}

	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RateLimitOptions monta as opções do limiter: preset como base, campos explícitos por cima.
// Store, Stats, Clock e Logger ficam por conta de quem chama.
func (c RateLimitConfig) RateLimitOptions() ratelimit.Options {
	opts, ok := ratelimit.Preset(c.Preset)
	if !ok {
		opts = ratelimit.Options{Name: "gateway"}
	}
	if c.Window > 0 {
		opts.Window = c.Window
	}
	if c.Max > 0 {
		opts.Max = c.Max
	}
	if c.StatusCode != 0 {
		opts.StatusCode = c.StatusCode
	}
	if c.Message != "" {
		opts.Message = c.Message
	}
	if c.SweepInterval != 0 {
		opts.SweepInterval = c.SweepInterval
	}
	opts.KeyHeader = c.KeyHeader
	opts.TrustXForwardedFor = c.TrustXForwardedFor
	opts.SkipSuccessfulRequests = c.SkipSuccessful
	opts.SkipFailedRequests = c.SkipFailed
	opts.FailOpen = c.FailOpen
	return opts
}

// CacheOptions monta as opções do cache da mesma forma que RateLimitOptions.
func (c CacheConfig) CacheOptions() respcache.Options {
	opts, ok := respcache.Preset(c.Preset)
	if !ok {
		opts = respcache.Options{Name: "gateway"}
	}
	if c.TTL > 0 {
		opts.TTL = c.TTL
	}
	if c.SweepInterval != 0 {
		opts.SweepInterval = c.SweepInterval
	}
	return opts
}
