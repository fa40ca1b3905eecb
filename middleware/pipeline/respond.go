package pipeline

import (
	"encoding/json"
	"net/http"
)

// WriteJSON escreve v como corpo JSON com o status informado.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type Middleware func(next http.Handler) http.Handler

// Chain aplica os middlewares em volta de h; o primeiro da lista fica mais externo.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}
