package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit/domain"
	"pipeline-guard/middleware/ratelimit/infra"
)

const (
	DefaultWindow        = time.Minute
	DefaultMax           = 100
	DefaultStatusCode    = http.StatusTooManyRequests
	DefaultMessage       = "Too many requests, please try again later."
	DefaultSweepInterval = time.Minute
)

var ErrInvalidOptions = errors.New("ratelimit: invalid options")

type KeyFunc = pipeline.KeyFunc

// DefaultKeyFunc identifica o cliente por header, X-Forwarded-For ou IP remoto.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return pipeline.ClientKey(keyHeader, trustXFF)
}

type Options struct {
	// Window é a duração da janela fixa (0 = DefaultWindow).
	Window time.Duration
	// Max é o número de requisições permitidas por janela (0 = DefaultMax,
	// negativo = erro). Não existe limiter que recuse tudo; para isso não
	// registre a rota.
	Max        int
	StatusCode int
	Message    string

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	// SkipSuccessfulRequests desconta respostas 2xx; SkipFailedRequests desconta >= 400.
	SkipSuccessfulRequests bool
	SkipFailedRequests     bool

	// FailOpen deixa a requisição passar quando o Store falha (padrão: 500).
	FailOpen bool

	Store domain.WindowStore
	// Stats recebe cada decisão além do contador Prometheus.
	Stats domain.StatsStore

	// SweepInterval controla a limpeza de janelas vencidas
	// (0 = DefaultSweepInterval, negativo = desligada).
	SweepInterval time.Duration
	Clock         clock.Clock
	Logger        *zap.Logger
	Name          string
}

func (o Options) withDefaults() (Options, error) {
	switch {
	case o.Window < 0:
		return o, fmt.Errorf("%w: window must be >= 0, got %s", ErrInvalidOptions, o.Window)
	case o.Max < 0:
		return o, fmt.Errorf("%w: max must be >= 0, got %d", ErrInvalidOptions, o.Max)
	case o.StatusCode != 0 && (o.StatusCode < 400 || o.StatusCode > 599):
		return o, fmt.Errorf("%w: status code must be 4xx or 5xx, got %d", ErrInvalidOptions, o.StatusCode)
	}

	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	if o.Max == 0 {
		o.Max = DefaultMax
	}
	if o.StatusCode == 0 {
		o.StatusCode = DefaultStatusCode
	}
	if o.Message == "" {
		o.Message = DefaultMessage
	}
	if o.KeyFn == nil {
		o.KeyFn = DefaultKeyFunc(o.KeyHeader, o.TrustXForwardedFor)
	}
	if o.Store == nil {
		o.Store = infra.NewStore()
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}
