package application

import (
	"context"
	"time"

	"pipeline-guard/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o timeout de espera por uma vaga do SlotPool,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
// Com AcquireTimeout <= 0 espera até ctx encerrar; senão desiste no timeout.
// Se ok=false, nenhuma vaga foi adquirida e não há o que liberar.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}
