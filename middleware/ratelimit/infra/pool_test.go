package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphorePool_BlocksAtCapacity(t *testing.T) {
	p := NewSemaphorePool(1)

	release, ok := p.Acquire(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok = p.Acquire(ctx)
	assert.False(t, ok, "second acquire must wait and give up with the context")

	release()
	release() // idempotente

	r2, ok := p.Acquire(context.Background())
	require.True(t, ok)
	r2()

	// um release duplicado não pode abrir uma segunda vaga
	r3, ok := p.Acquire(context.Background())
	require.True(t, ok)
	defer r3()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	_, ok = p.Acquire(ctx2)
	assert.False(t, ok)
}
