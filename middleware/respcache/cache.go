package respcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pipeline-guard/internal/metrics"
	"pipeline-guard/middleware/kv"
	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/respcache/domain"
)

// Cache memoriza respostas de leitura por um TTL.
//
// Cada instância é dona do seu Store e da sua varredura; Close encerra a varredura.
type Cache struct {
	opts  Options
	store domain.Store
	clock clock.Clock
	log   *zap.Logger

	// limita logs de falha do Store disparados por tráfego
	warnEvery rate.Sometimes

	cancel    context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

// Stats é um retrato da quantidade de entradas e das chaves atuais.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

func New(opts Options) (*Cache, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Cache{
		opts:      opts,
		store:     opts.Store,
		clock:     opts.Clock,
		log:       opts.Logger.With(zap.String("component", "respcache"), zap.String("cache", opts.Name)),
		warnEvery: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = kv.RunEvery(ctx, c.clock, opts.SweepInterval, func() { c.Sweep() })
	return c, nil
}

func (c *Cache) TTL() time.Duration { return c.opts.TTL }

func (c *Cache) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pipeline.IsReadMethod(r.Method) {
				metrics.RecordCacheLookup(c.opts.Name, metrics.CacheBypass)
				next.ServeHTTP(w, r)
				return
			}

			key, entry, err := c.lookup(r)
			switch {
			case err == nil && entry.Fresh(c.clock.Now()):
				metrics.RecordCacheLookup(c.opts.Name, metrics.CacheHit)
				c.serve(w, entry)
				return
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				metrics.RecordCacheLookup(c.opts.Name, metrics.CacheError)
				c.warn("cache lookup failed, serving uncached", key, err)
				next.ServeHTTP(w, r)
				return
			}

			// ausente ou vencida: segue como miss
			metrics.RecordCacheLookup(c.opts.Name, metrics.CacheMiss)
			w.Header().Set(c.opts.HeaderName, "MISS")

			rec := pipeline.NewRecorder(w, true)
			rec.OnFinish(func(s pipeline.Snapshot) { c.remember(r, key, s) })
			next.ServeHTTP(rec, r)
			rec.Finish()
		})
	}
}

// lookup protege o caminho da requisição contra pânico em KeyFn ou no Store.
func (c *Cache) lookup(r *http.Request) (key string, e domain.Entry, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cache lookup panic: %v", p)
		}
	}()
	key = c.opts.KeyFn(r)
	e, err = c.store.Get(key)
	return key, e, err
}

func (c *Cache) serve(w http.ResponseWriter, e domain.Entry) {
	h := w.Header()
	for k, vv := range e.Header {
		h[k] = append([]string(nil), vv...)
	}
	h.Set(c.opts.HeaderName, "HIT")

	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(e.Body)
}

func (c *Cache) remember(r *http.Request, key string, s pipeline.Snapshot) {
	if !s.Written || r.Context().Err() != nil {
		return
	}
	if !c.opts.Condition(r, ResponseMeta{Status: s.Status, Header: s.Header}) {
		return
	}

	entry := domain.Entry{
		Key:      key,
		Status:   s.Status,
		Header:   c.storableHeader(s.Header),
		Body:     s.Body,
		StoredAt: c.clock.Now(),
		TTL:      c.opts.TTL,
	}
	if err := c.set(entry); err != nil {
		metrics.RecordCacheLookup(c.opts.Name, metrics.CacheError)
		c.warn("cache store failed", key, err)
		return
	}
	metrics.RecordCacheStore(c.opts.Name)
}

func (c *Cache) set(e domain.Entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cache store panic: %v", p)
		}
	}()
	return c.store.Set(e)
}

// storableHeader descarta headers que pertencem a uma requisição específica.
func (c *Cache) storableHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		switch {
		case strings.EqualFold(k, c.opts.HeaderName),
			strings.EqualFold(k, "Set-Cookie"),
			strings.EqualFold(k, "Date"),
			strings.EqualFold(k, "Retry-After"),
			strings.HasPrefix(strings.ToLower(k), "x-ratelimit-"):
			continue
		}
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// Clear remove todas as entradas (pattern vazio) ou as que casam com a regexp pattern.
func (c *Cache) Clear(pattern string) (int, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return 0, fmt.Errorf("invalid clear pattern %q: %w", pattern, err)
		}
	}

	n, err := c.store.DeleteMatching(re)
	if err != nil {
		return n, fmt.Errorf("clear cache: %w", err)
	}
	metrics.SetCacheEntries(c.opts.Name, c.store.Len())
	c.log.Info("cache cleared", zap.String("pattern", pattern), zap.Int("removed", n))
	return n, nil
}

func (c *Cache) Stats() Stats {
	keys, err := c.store.Keys()
	if err != nil {
		c.log.Warn("cache keys unavailable", zap.Error(err))
	}
	if keys == nil {
		keys = []string{}
	}
	return Stats{Size: c.store.Len(), Keys: keys}
}

// Sweep remove as entradas vencidas. Roda periodicamente; exportado para testes e admin.
func (c *Cache) Sweep() int {
	n, err := c.store.DeleteExpired(c.clock.Now())
	if err != nil {
		c.log.Warn("cache sweep failed", zap.Error(err))
	}
	metrics.RecordSweep("respcache", c.opts.Name, n)
	metrics.SetCacheEntries(c.opts.Name, c.store.Len())
	if n > 0 {
		c.log.Debug("cache sweep", zap.Int("removed", n))
	}
	return n
}

// Close encerra a varredura periódica e espera a goroutine terminar.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
}

func (c *Cache) warn(msg, key string, err error) {
	c.warnEvery.Do(func() {
		c.log.Warn(msg, zap.String("key", key), zap.Error(err))
	})
}
