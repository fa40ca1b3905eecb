// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(ctx, key) cobra a requisição na janela e retorna uma Decision;
// Service.Settle desfaz a cobrança quando o status da resposta manda ignorá-la.
package application
