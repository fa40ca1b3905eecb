// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (cobrança na janela, skip, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, semáforo, stats), detalhes de infraestrutura
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo de uma requisição:
//
//  1. Extrai a chave do cliente (header/XFF/IP)
//  2. Cobra a requisição na janela da chave (application.Service.Decide)
//  3. Publica X-RateLimit-Limit/Remaining/Reset
//  4. Se passou do limite, responde 429 com {"message", "retryAfter"} e Retry-After
//  5. Se permitido, chama o próximo handler e, com skip configurado, desfaz a cobrança
//     conforme o status final
package ratelimit
