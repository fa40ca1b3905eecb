package infra

import (
	"context"
	"time"

	"pipeline-guard/middleware/kv"
	"pipeline-guard/middleware/ratelimit/domain"
)

// Store guarda uma janela fixa por chave em memória.
//
// Cada operação roda sob o lock do shard da chave, então Hit e Release são
// atômicos por chave sem serializar chaves diferentes.
type Store struct {
	windows *kv.Map[domain.Window]
}

type StoreOption func(*storeConfig)

type storeConfig struct {
	shards []kv.Option
}

func WithShards(n int) StoreOption {
	return func(c *storeConfig) { c.shards = append(c.shards, kv.WithShards(n)) }
}

func NewStore(opts ...StoreOption) *Store {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{windows: kv.New[domain.Window](cfg.shards...)}
}

// Hit implementa domain.WindowStore.
func (s *Store) Hit(_ context.Context, key domain.Key, now time.Time, length time.Duration) (domain.Window, error) {
	w, _ := s.windows.Compute(string(key), func(cur domain.Window, ok bool) (domain.Window, bool) {
		if !ok || cur.Expired(now) {
			cur = domain.Window{ResetAt: now.Add(length)}
		}
		cur.Count++
		return cur, true
	})
	return w, nil
}

// Release implementa domain.WindowStore.
func (s *Store) Release(_ context.Context, key domain.Key, charged domain.Window) (bool, error) {
	released := false
	s.windows.Compute(string(key), func(cur domain.Window, ok bool) (domain.Window, bool) {
		if !ok {
			return cur, false
		}
		// janela já virou: a cobrança antiga não existe mais
		if cur.ResetAt.Equal(charged.ResetAt) && cur.Count > 0 {
			cur.Count--
			released = true
		}
		return cur, true
	})
	return released, nil
}

// Cleanup remove as janelas vencidas.
func (s *Store) Cleanup(_ context.Context, now time.Time) (int, error) {
	return s.windows.DeleteFunc(func(_ string, w domain.Window) bool {
		return w.Expired(now)
	}), nil
}

func (s *Store) Len() int { return s.windows.Len() }

// Get devolve a janela atual da chave, sem alterá-la.
func (s *Store) Get(key domain.Key) (domain.Window, bool) {
	return s.windows.Get(string(key))
}
