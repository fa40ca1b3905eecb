// Package domain define a entrada do cache de respostas e o contrato de armazenamento.
//
// Não depende de net/http além do tipo http.Header guardado na entrada.
package domain
