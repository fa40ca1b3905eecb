package ratelimit

import (
	"net/http"
	"time"

	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit/application"
	"pipeline-guard/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita requisições em andamento. Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewSemaphorePool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				_ = pipeline.WriteJSON(w, opts.RejectStatus, errorBody{Message: http.StatusText(opts.RejectStatus)})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
