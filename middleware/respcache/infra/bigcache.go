package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/allegro/bigcache/v3"

	"pipeline-guard/middleware/respcache/domain"
)

var _ domain.Store = (*BigCacheStore)(nil)

// BigCacheStore guarda as entradas no bigcache, fora do heap do GC.
//
// A expiração do próprio bigcache (LifeWindow) é só uma rede de segurança; a validade
// de cada entrada continua sendo StoredAt+TTL.
type BigCacheStore struct {
	cache *bigcache.BigCache
}

type BigCacheConfig struct {
	// LifeWindow deve ser maior que o maior TTL usado.
	LifeWindow time.Duration
	// HardMaxCacheSizeMB limita a memória (0 = sem limite).
	HardMaxCacheSizeMB int
	MaxEntrySize       int
}

func NewBigCacheStore(ctx context.Context, cfg BigCacheConfig) (*BigCacheStore, error) {
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = 2 * time.Hour
	}
	bc := bigcache.DefaultConfig(cfg.LifeWindow)
	bc.CleanWindow = 0 // a varredura é feita pelo respcache
	bc.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	bc.Verbose = false
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}

	c, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &BigCacheStore{cache: c}, nil
}

func (s *BigCacheStore) Get(key string) (domain.Entry, error) {
	data, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return domain.Entry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("bigcache get %q: %w", key, err)
	}

	var e domain.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = s.cache.Delete(key) // entrada corrompida
		return domain.Entry{}, fmt.Errorf("decode entry %q: %w", key, err)
	}
	return e, nil
}

func (s *BigCacheStore) Set(entry domain.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %q: %w", entry.Key, err)
	}
	if err := s.cache.Set(entry.Key, data); err != nil {
		return fmt.Errorf("bigcache set %q: %w", entry.Key, err)
	}
	return nil
}

func (s *BigCacheStore) DeleteMatching(re *regexp.Regexp) (int, error) {
	if re == nil {
		n := s.cache.Len()
		if err := s.cache.Reset(); err != nil {
			return 0, fmt.Errorf("bigcache reset: %w", err)
		}
		return n, nil
	}
	return s.deleteWhere(func(key string, _ []byte) bool { return re.MatchString(key) })
}

func (s *BigCacheStore) DeleteExpired(now time.Time) (int, error) {
	return s.deleteWhere(func(_ string, data []byte) bool {
		var e domain.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return true
		}
		return !e.Fresh(now)
	})
}

// deleteWhere coleta as chaves primeiro; remover durante a iteração não é suportado.
func (s *BigCacheStore) deleteWhere(match func(key string, data []byte) bool) (int, error) {
	var victims []string
	it := s.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			// entrada removida entre SetNext e Value
			continue
		}
		if match(info.Key(), info.Value()) {
			victims = append(victims, info.Key())
		}
	}

	removed := 0
	for _, k := range victims {
		err := s.cache.Delete(k)
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("bigcache delete %q: %w", k, err)
		}
		removed++
	}
	return removed, nil
}

func (s *BigCacheStore) Keys() ([]string, error) {
	keys := make([]string, 0, s.cache.Len())
	it := s.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, info.Key())
	}
	return keys, nil
}

func (s *BigCacheStore) Len() int { return s.cache.Len() }

func (s *BigCacheStore) Close() error { return s.cache.Close() }
