package infra

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"pipeline-guard/middleware/ratelimit/domain"
)

type semaphorePool struct {
	sem *semaphore.Weighted
}

// NewSemaphorePool cria um pool com capacidade `max` sobre semaphore.Weighted.
func NewSemaphorePool(max int) domain.SlotPool {
	return &semaphorePool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *semaphorePool) Acquire(ctx context.Context) (func(), bool) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { p.sem.Release(1) }) }, true
}
