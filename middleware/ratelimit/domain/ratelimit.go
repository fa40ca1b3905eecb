package domain

// Camada de domínio do rate limit por janela fixa.
//
// Cada chave tem a sua própria janela, iniciada na primeira requisição; a virada
// é preguiçosa (verificada na próxima requisição daquela chave).

import (
	"context"
	"time"
)

//go:generate mockgen -package=mock -source=ratelimit.go -destination=mock/window_store.go

type Key string

// Window é o contador de uma chave na janela corrente.
//
// Count só cresce dentro de [início, ResetAt); quando now >= ResetAt a janela está
// vencida e precisa ser reiniciada antes de contar de novo.
type Window struct {
	Count   int
	ResetAt time.Time
}

func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.ResetAt)
}

// WindowStore guarda as janelas por chave.
//
// Hit precisa ser atômico por chave (increment-or-init): duas requisições simultâneas
// nunca recebem o mesmo Count e nenhum incremento se perde.
type WindowStore interface {
	// Hit reinicia a janela se ausente ou vencida e incrementa Count.
	Hit(ctx context.Context, key Key, now time.Time, length time.Duration) (Window, error)
	// Release desfaz um Hit da janela charged, se ela ainda for a janela corrente.
	// Nunca deixa Count negativo. Retorna se houve decremento.
	Release(ctx context.Context, key Key, charged Window) (bool, error)
	// Cleanup remove janelas vencidas em now.
	Cleanup(ctx context.Context, now time.Time) (int, error)
	Len() int
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter é o tempo até a virada da janela. Só é relevante quando bloqueado.
	RetryAfter time.Duration
	// Window é a janela cobrada por esta requisição (usada para Release).
	Window Window
}
