package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pipeline-guard/internal/metrics"
	"pipeline-guard/middleware/kv"
	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit/application"
	"pipeline-guard/middleware/ratelimit/domain"
	"pipeline-guard/middleware/ratelimit/infra"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

type rejection struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Limiter limita requisições por chave de cliente em janelas fixas.
//
// Cada instância é dona do seu Store e da sua limpeza; Close encerra a limpeza.
type Limiter struct {
	opts  Options
	svc   application.Service
	stats domain.StatsStore
	log   *zap.Logger

	warnEvery rate.Sometimes

	cancel    context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

func New(opts Options) (*Limiter, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	l := &Limiter{
		opts: opts,
		svc: application.Service{
			Store:          opts.Store,
			Max:            opts.Max,
			Window:         opts.Window,
			Clock:          opts.Clock,
			SkipSuccessful: opts.SkipSuccessfulRequests,
			SkipFailed:     opts.SkipFailedRequests,
		},
		stats:     infra.MultiStatsStore{infra.NewPrometheusStatsStore(opts.Name), opts.Stats},
		log:       opts.Logger.With(zap.String("component", "ratelimit"), zap.String("limiter", opts.Name)),
		warnEvery: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = kv.RunEvery(ctx, opts.Clock, opts.SweepInterval, func() { l.Sweep() })
	return l, nil
}

func (l *Limiter) Max() int              { return l.opts.Max }
func (l *Limiter) Window() time.Duration { return l.opts.Window }

func (l *Limiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, dec, err := l.decide(r)
			if err != nil {
				l.record(r, key, domain.OutcomeError)
				l.warn("rate limit store failed", key, err)
				if l.opts.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				_ = pipeline.WriteJSON(w, http.StatusInternalServerError, errorBody{Message: "internal server error"})
				return
			}

			h := w.Header()
			h.Set(HeaderLimit, formatInt(dec.Limit))
			h.Set(HeaderRemaining, formatInt(dec.Remaining))
			h.Set(HeaderReset, formatUnix(dec.ResetAt))

			if !dec.Allowed {
				l.record(r, key, domain.OutcomeRejected)
				secs := ceilSeconds(dec.RetryAfter)
				h.Set(HeaderRetryAfter, formatInt(secs))
				_ = pipeline.WriteJSON(w, l.opts.StatusCode, rejection{Message: l.opts.Message, RetryAfter: secs})
				return
			}
			l.record(r, key, domain.OutcomeAllowed)

			if !l.svc.Skips() {
				next.ServeHTTP(w, r)
				return
			}

			rec := pipeline.NewRecorder(w, false)
			rec.OnFinish(func(s pipeline.Snapshot) { l.settle(r, key, dec, s) })
			next.ServeHTTP(rec, r)
			rec.Finish()
		})
	}
}

// decide protege o caminho da requisição contra pânico em KeyFn ou no Store.
func (l *Limiter) decide(r *http.Request) (key domain.Key, dec domain.Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rate limit panic: %v", p)
		}
	}()
	key = domain.Key(l.opts.KeyFn(r))
	dec, err = l.svc.Decide(r.Context(), key)
	return key, dec, err
}

// settle roda uma única vez por requisição, depois do handler.
func (l *Limiter) settle(r *http.Request, key domain.Key, dec domain.Decision, s pipeline.Snapshot) {
	status := s.Status
	if !s.Written {
		// cancelada sem resposta: não há status para avaliar
		if r.Context().Err() != nil {
			return
		}
		// o net/http responde 200 quando o handler não escreve nada
		status = http.StatusOK
	}
	// o desconto ainda precisa chegar ao Store mesmo após cancelamento
	ctx := context.WithoutCancel(r.Context())
	released, err := l.svc.Settle(ctx, key, dec, status)
	if err != nil {
		l.warn("rate limit release failed", key, err)
		return
	}
	if released {
		l.record(r, key, domain.OutcomeReleased)
	}
}

func (l *Limiter) record(r *http.Request, key domain.Key, outcome string) {
	err := l.stats.Record(context.WithoutCancel(r.Context()), domain.StatsEvent{
		Key:     key,
		Outcome: outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      l.opts.Clock.Now(),
	})
	if err != nil {
		l.log.Debug("rate limit stats not recorded", zap.Error(err))
	}
}

// Sweep remove janelas vencidas. Roda periodicamente; exportado para testes e admin.
func (l *Limiter) Sweep() int {
	n, err := l.opts.Store.Cleanup(context.Background(), l.opts.Clock.Now())
	if err != nil {
		l.log.Warn("rate limit sweep failed", zap.Error(err))
	}
	metrics.RecordSweep("ratelimit", l.opts.Name, n)
	metrics.SetRateWindows(l.opts.Name, l.opts.Store.Len())
	return n
}

// Close encerra a limpeza periódica e espera a goroutine terminar.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		<-l.done
	})
}

func (l *Limiter) warn(msg string, key domain.Key, err error) {
	l.warnEvery.Do(func() {
		l.log.Warn(msg, zap.String("key", string(key)), zap.Error(err))
	})
}

// Windows é o número de chaves com janela guardada.
func (l *Limiter) Windows() int { return l.opts.Store.Len() }
