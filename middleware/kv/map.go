package kv

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 32

// Map é um mapa particionado seguro para uso concorrente.
//
// Compute executa leitura-modificação-escrita de forma atômica por chave; é a base do
// increment-or-init do rate limit.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint32
}

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

type Option func(*config)

type config struct {
	shards int
}

// WithShards define a quantidade de shards (arredondada para a próxima potência de 2).
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

func New[V any](opts ...Option) *Map[V] {
	cfg := config{shards: defaultShards}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := nextPow2(cfg.shards)

	m := &Map[V]{
		shards: make([]*shard[V], n),
		mask:   uint32(n - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()&m.mask]
}

func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

func (m *Map[V]) Set(key string, v V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

// Compute chama fn com o valor atual (ok=false se ausente) segurando o lock do shard.
// Se fn retornar keep=false a chave é removida. Retorna o valor final e se ele ficou no mapa.
//
// fn não pode chamar métodos do próprio Map (deadlock).
func (m *Map[V]) Compute(key string, fn func(cur V, ok bool) (next V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[key]
	next, keep := fn(cur, ok)
	if !keep {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	s.items[key] = next
	return next, true
}

func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// DeleteFunc remove todas as entradas para as quais fn retorna true e devolve quantas
// foram removidas. Cada shard é travado apenas durante a sua própria varredura.
func (m *Map[V]) DeleteFunc(fn func(key string, v V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (m *Map[V]) Keys() []string {
	out := make([]string, 0, m.Len())
	for _, s := range m.shards {
		s.mu.Lock()
		for k := range s.items {
			out = append(out, k)
		}
		s.mu.Unlock()
	}
	return out
}

func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		clear(s.items)
		s.mu.Unlock()
	}
}
