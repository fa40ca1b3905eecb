package infra

import (
	"regexp"
	"time"

	"pipeline-guard/middleware/kv"
	"pipeline-guard/middleware/respcache/domain"
)

var _ domain.Store = (*MemoryStore)(nil)

// MemoryStore guarda as entradas num kv.Map. Nunca retorna erro.
type MemoryStore struct {
	entries *kv.Map[domain.Entry]
}

func NewMemoryStore(opts ...kv.Option) *MemoryStore {
	return &MemoryStore{entries: kv.New[domain.Entry](opts...)}
}

func (s *MemoryStore) Get(key string) (domain.Entry, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return domain.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Set(entry domain.Entry) error {
	s.entries.Set(entry.Key, entry)
	return nil
}

func (s *MemoryStore) DeleteMatching(re *regexp.Regexp) (int, error) {
	if re == nil {
		n := s.entries.Len()
		s.entries.Clear()
		return n, nil
	}
	return s.entries.DeleteFunc(func(key string, _ domain.Entry) bool {
		return re.MatchString(key)
	}), nil
}

func (s *MemoryStore) DeleteExpired(now time.Time) (int, error) {
	return s.entries.DeleteFunc(func(_ string, e domain.Entry) bool {
		return !e.Fresh(now)
	}), nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	return s.entries.Keys(), nil
}

func (s *MemoryStore) Len() int { return s.entries.Len() }
