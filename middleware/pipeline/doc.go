// Package pipeline reúne as peças compartilhadas pelos middlewares HTTP:
//
//   - Recorder: intercepta a escrita da resposta e notifica listeners uma única vez
//   - geradores de chave (fingerprint da requisição, identidade do cliente)
//   - WriteJSON e Chain
//
// Nada aqui guarda estado entre requisições.
package pipeline
