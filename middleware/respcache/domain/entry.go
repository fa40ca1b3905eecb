package domain

import (
	"errors"
	"net/http"
	"regexp"
	"time"
)

// ErrNotFound é retornado por Store.Get quando a chave não existe.
var ErrNotFound = errors.New("cache entry not found")

// Entry é uma resposta memorizada.
//
// Uma entrada é válida enquanto now-StoredAt < TTL; entradas vencidas nunca são servidas.
type Entry struct {
	Key      string        `json:"key"`
	Status   int           `json:"status"`
	Header   http.Header   `json:"header,omitempty"`
	Body     []byte        `json:"body"`
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
}

func (e Entry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Store guarda entradas por chave. Implementações devem ser seguras para uso concorrente.
//
// Get pode devolver entradas vencidas; quem decide a validade é o chamador.
type Store interface {
	Get(key string) (Entry, error)
	Set(entry Entry) error
	// DeleteMatching remove as chaves que casam com re (nil remove tudo).
	DeleteMatching(re *regexp.Regexp) (int, error)
	// DeleteExpired remove entradas com now-StoredAt >= TTL.
	DeleteExpired(now time.Time) (int, error)
	Keys() ([]string, error)
	Len() int
}
