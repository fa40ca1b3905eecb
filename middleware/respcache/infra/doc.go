// Package infra contém implementações de domain.Store para o cache de respostas.
//
//   - MemoryStore: mapa particionado (kv.Map), padrão
//   - BigCacheStore: github.com/allegro/bigcache/v3, entradas serializadas em JSON
package infra
