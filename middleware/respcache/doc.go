// Package respcache fornece o middleware HTTP (net/http) de cache de respostas.
//
// Visão geral (camadas):
//
//   - domain: Entry e o contrato Store
//   - infra: implementações de Store (memória particionada, bigcache)
//   - respcache (este pacote): middleware, presets, Clear/Stats e a varredura periódica
//
// Fluxo de uma requisição GET:
//
//  1. Calcula a chave (padrão: método + ":" + path com query)
//  2. Entrada válida (now-StoredAt < TTL): responde com ela e X-Cache: HIT, sem chamar o handler
//  3. Caso contrário: X-Cache: MISS, chama o handler e, se Condition aceitar a resposta,
//     guarda o corpo escrito
//
// Qualquer falha do Store cai no handler original: o cache é só otimização.
package respcache
