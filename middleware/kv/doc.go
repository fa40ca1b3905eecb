// Package kv contém o armazenamento chave-valor concorrente usado pelos middlewares
// (cache de respostas e rate limit) e o laço periódico de limpeza (janitor).
//
// O mapa é particionado em shards, cada um com seu próprio mutex: operações em chaves
// de shards diferentes não se bloqueiam, e operações na mesma chave são serializadas.
package kv
