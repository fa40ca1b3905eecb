package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

// applyEnv sobrescreve cfg com as variáveis de ambiente definidas (e não vazias).
func applyEnv(cfg *Config) error {
	e := &envReader{}

	e.str("LISTEN_ADDR", &cfg.ListenAddr)
	e.str("ADMIN_ADDR", &cfg.AdminAddr)
	e.str("UPSTREAM_URL", &cfg.UpstreamURL)
	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	rl := &cfg.RateLimit
	e.boolean("RATE_ENABLED", &rl.Enabled)
	e.str("RATE_PRESET", &rl.Preset)
	e.duration("RATE_WINDOW", &rl.Window)
	e.integer("RATE_MAX", &rl.Max)
	e.integer("RATE_STATUS_CODE", &rl.StatusCode)
	e.str("RATE_MESSAGE", &rl.Message)
	e.str("RATE_KEY_HEADER", &rl.KeyHeader)
	e.boolean("TRUST_XFF", &rl.TrustXForwardedFor)
	e.boolean("RATE_SKIP_SUCCESSFUL", &rl.SkipSuccessful)
	e.boolean("RATE_SKIP_FAILED", &rl.SkipFailed)
	e.boolean("RATE_FAIL_OPEN", &rl.FailOpen)
	e.boolean("RATE_COUNT_CACHE_HITS", &rl.CountCacheHits)

	c := &cfg.Cache
	e.boolean("CACHE_ENABLED", &c.Enabled)
	e.str("CACHE_PRESET", &c.Preset)
	e.duration("CACHE_TTL", &c.TTL)
	e.str("CACHE_BACKEND", &c.Backend)
	e.integer("CACHE_MAX_SIZE_MB", &c.BigCache.HardMaxCacheSizeMB)

	e.integer("CONCURRENCY_MAX", &cfg.Concurrency.Max)
	e.duration("CONCURRENCY_TIMEOUT", &cfg.Concurrency.Timeout)

	s := &cfg.Stats
	e.boolean("RATE_STATS_ENABLED", &s.Enabled)
	e.str("RATE_STATS_REDIS_ADDR", &s.RedisAddr)
	e.str("RATE_STATS_REDIS_PASSWORD", &s.RedisPassword)
	e.integer("RATE_STATS_REDIS_DB", &s.RedisDB)
	e.str("RATE_STATS_PREFIX", &s.Prefix)
	e.duration("RATE_STATS_TTL", &s.TTL)
	e.str("RATE_STATS_BUCKET", &s.Bucket)
	e.boolean("RATE_STATS_TRACK_KEYS", &s.TrackKeys)

	return e.err
}

// envReader acumula erros de parse para reportar todos de uma vez.
type envReader struct {
	err error
}

func lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *envReader) str(k string, dst *string) {
	if v, ok := lookup(k); ok {
		*dst = v
	}
}

func (e *envReader) integer(k string, dst *int) {
	v, ok := lookup(k)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %w", k, err))
		return
	}
	*dst = i
}

func (e *envReader) boolean(k string, dst *bool) {
	v, ok := lookup(k)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %w", k, err))
		return
	}
	*dst = b
}

func (e *envReader) duration(k string, dst *time.Duration) {
	v, ok := lookup(k)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = multierr.Append(e.err, fmt.Errorf("%s: %w", k, err))
		return
	}
	*dst = d
}
