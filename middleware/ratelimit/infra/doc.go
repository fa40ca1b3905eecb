// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: janela fixa por chave em memória (kv.Map)
//   - SemaphorePool: limite de concorrência com golang.org/x/sync/semaphore
//   - MemoryStatsStore / RedisStatsStore / PrometheusStatsStore: destino das estatísticas
package infra
