package kv

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// RunEvery executa fn a cada `every` até o ctx ser cancelado.
// Com every <= 0 nada é iniciado. Retorna um canal fechado quando a goroutine termina.
func RunEvery(ctx context.Context, clk clock.Clock, every time.Duration, fn func()) <-chan struct{} {
	done := make(chan struct{})
	if every <= 0 {
		close(done)
		return done
	}
	if clk == nil {
		clk = clock.New()
	}

	t := clk.Ticker(every)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
	return done
}
