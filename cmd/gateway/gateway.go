package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pipeline-guard/internal/config"
	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit"
	rldomain "pipeline-guard/middleware/ratelimit/domain"
	rlinfra "pipeline-guard/middleware/ratelimit/infra"
	"pipeline-guard/middleware/respcache"
	cacheinfra "pipeline-guard/middleware/respcache/infra"
)

// gateway agrupa os componentes montados a partir da Config.
// limiter e cache são nil quando desligados.
type gateway struct {
	log     *zap.Logger
	limiter *ratelimit.Limiter
	cache   *respcache.Cache

	handler http.Handler
	admin   http.Handler

	closers []func()
}

func buildGateway(ctx context.Context, cfg config.Config, log *zap.Logger) (_ *gateway, err error) {
	g := &gateway{log: log}
	defer func() {
		if err != nil {
			g.Close()
		}
	}()

	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		_ = pipeline.WriteJSON(w, http.StatusBadGateway, map[string]string{"message": "bad gateway"})
	}

	var rateMW, cacheMW pipeline.Middleware

	if cfg.RateLimit.Enabled {
		stats, err := g.buildStats(ctx, cfg.Stats)
		if err != nil {
			return nil, err
		}
		opts := cfg.RateLimit.RateLimitOptions()
		opts.Stats = stats
		opts.Logger = log
		if g.limiter, err = ratelimit.New(opts); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		g.closers = append(g.closers, g.limiter.Close)
		rateMW = g.limiter.Middleware()
	}

	if cfg.Cache.Enabled {
		opts := cfg.Cache.CacheOptions()
		opts.Logger = log
		if cfg.Cache.Backend == config.BackendBigCache {
			store, err := g.buildBigCache(ctx, cfg.Cache, opts.TTL)
			if err != nil {
				return nil, err
			}
			opts.Store = store
		}
		if g.cache, err = respcache.New(opts); err != nil {
			return nil, fmt.Errorf("response cache: %w", err)
		}
		g.closers = append(g.closers, g.cache.Close)
		cacheMW = g.cache.Middleware()
	}

	concurrency := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		AcquireTimeout: cfg.Concurrency.Timeout,
	})

	// com CountCacheHits o limiter fica por fora e cobra também as respostas do cache
	if cfg.RateLimit.CountCacheHits {
		g.handler = pipeline.Chain(proxy, concurrency, rateMW, cacheMW)
	} else {
		g.handler = pipeline.Chain(proxy, concurrency, cacheMW, rateMW)
	}
	g.admin = newAdminRouter(g.cache, g.limiter, log)

	log.Info("gateway configured",
		zap.String("upstream", target.String()),
		zap.Bool("rate_limit", g.limiter != nil),
		zap.Bool("cache", g.cache != nil),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("count_cache_hits", cfg.RateLimit.CountCacheHits),
		zap.Int("concurrency_max", cfg.Concurrency.Max),
	)
	return g, nil
}

func (g *gateway) buildStats(ctx context.Context, cfg config.StatsConfig) (rldomain.StatsStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	g.closers = append(g.closers, func() { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis stats ping: %w", err)
	}

	g.log.Info("rate limit stats enabled", zap.String("redis_addr", cfg.RedisAddr), zap.String("prefix", cfg.Prefix))
	return rlinfra.NewRedisStatsStore(
		rdb,
		rlinfra.WithStatsPrefix(cfg.Prefix),
		rlinfra.WithStatsTTL(cfg.TTL),
		rlinfra.WithStatsBucket(cfg.Bucket),
		rlinfra.WithStatsTrackKeys(cfg.TrackKeys),
	), nil
}

func (g *gateway) buildBigCache(ctx context.Context, cfg config.CacheConfig, ttl time.Duration) (*cacheinfra.BigCacheStore, error) {
	if ttl <= 0 {
		ttl = respcache.DefaultTTL
	}
	store, err := cacheinfra.NewBigCacheStore(ctx, cacheinfra.BigCacheConfig{
		LifeWindow:         ttl,
		HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		MaxEntrySize:       cfg.BigCache.MaxEntrySize,
	})
	if err != nil {
		return nil, fmt.Errorf("bigcache store: %w", err)
	}
	g.closers = append(g.closers, func() { _ = store.Close() })
	return store, nil
}

// Close para as varreduras e fecha as conexões, na ordem inversa da criação.
func (g *gateway) Close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
	g.closers = nil
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}

// run sobe o proxy e o admin e espera ctx encerrar (SIGINT/SIGTERM).
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	g, err := buildGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer g.Close()

	servers := []*http.Server{newServer(cfg.ListenAddr, g.handler)}
	if cfg.AdminAddr != "" {
		servers = append(servers, newServer(cfg.AdminAddr, g.admin))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		eg.Go(func() error {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var err error
		for _, srv := range servers {
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}
		return err
	})
	return eg.Wait()
}
