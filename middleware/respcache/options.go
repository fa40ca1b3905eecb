package respcache

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/respcache/domain"
	"pipeline-guard/middleware/respcache/infra"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultHeaderName    = "X-Cache"
)

var ErrInvalidOptions = errors.New("respcache: invalid options")

// ResponseMeta é o que Condition enxerga da resposta produzida pelo handler.
type ResponseMeta struct {
	Status int
	Header http.Header
}

type ConditionFunc func(r *http.Request, meta ResponseMeta) bool

type Options struct {
	// TTL é o tempo de vida de cada entrada (0 = DefaultTTL).
	TTL time.Duration
	// KeyFn deve ser determinística. Se a resposta depende do usuário ou do idioma,
	// inclua esse discriminador na chave.
	KeyFn     pipeline.KeyFunc
	Condition ConditionFunc
	Store     domain.Store
	// SweepInterval controla a varredura de entradas vencidas
	// (0 = DefaultSweepInterval, negativo = desligada).
	SweepInterval time.Duration
	Clock         clock.Clock
	Logger        *zap.Logger
	// Name identifica a instância em métricas e logs.
	Name       string
	HeaderName string
}

// DefaultCondition aceita apenas GET com status 2xx.
func DefaultCondition(r *http.Request, meta ResponseMeta) bool {
	return pipeline.IsReadMethod(r.Method) && meta.Status >= 200 && meta.Status < 300
}

func (o Options) withDefaults() (Options, error) {
	if o.TTL < 0 {
		return o, fmt.Errorf("%w: ttl must be >= 0, got %s", ErrInvalidOptions, o.TTL)
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if o.KeyFn == nil {
		o.KeyFn = pipeline.RequestKey
	}
	if o.Condition == nil {
		o.Condition = DefaultCondition
	}
	if o.Store == nil {
		o.Store = infra.NewMemoryStore()
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
	if o.HeaderName == "" {
		o.HeaderName = DefaultHeaderName
	}
	return o, nil
}
