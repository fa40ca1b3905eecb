package domain

import "context"

// SlotPool limita quantas requisições ficam em andamento ao mesmo tempo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. O release devolvido
// pode ser chamado mais de uma vez; só a primeira chamada libera a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
