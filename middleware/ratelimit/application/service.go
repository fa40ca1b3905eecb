package application

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"pipeline-guard/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit por janela fixa.
//
// Ele não sabe nada sobre HTTP (headers/corpo), apenas cobra, decide e desfaz.
type Service struct {
	Store  domain.WindowStore
	Max    int
	Window time.Duration
	Clock  clock.Clock

	SkipSuccessful bool
	SkipFailed     bool
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Decide cobra uma requisição na janela da chave e diz se ela pode seguir.
//
// A cobrança acontece antes da decisão: requisições recusadas também contam.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Limit: s.Max, Remaining: s.Max}, nil
	}

	now := s.now()
	w, err := s.Store.Hit(ctx, key, now, s.Window)
	if err != nil {
		return domain.Decision{}, err
	}

	dec := domain.Decision{
		Allowed:   w.Count <= s.Max,
		Limit:     s.Max,
		Remaining: max(0, s.Max-w.Count),
		ResetAt:   w.ResetAt,
		Window:    w,
	}
	if !dec.Allowed {
		dec.RetryAfter = w.ResetAt.Sub(now)
	}
	return dec, nil
}

// Skips informa se alguma resposta pode ter a cobrança desfeita.
func (s Service) Skips() bool { return s.SkipSuccessful || s.SkipFailed }

// ShouldRelease aplica as regras de skip ao status final da resposta.
func (s Service) ShouldRelease(status int) bool {
	switch {
	case status >= 200 && status < 300:
		return s.SkipSuccessful
	case status >= 400:
		return s.SkipFailed
	}
	return false
}

// Settle desfaz a cobrança de dec quando o status manda ignorar a requisição.
// Retorna se houve decremento.
func (s Service) Settle(ctx context.Context, key domain.Key, dec domain.Decision, status int) (bool, error) {
	if s.Store == nil || !dec.Allowed || !s.ShouldRelease(status) {
		return false, nil
	}
	return s.Store.Release(ctx, key, dec.Window)
}
