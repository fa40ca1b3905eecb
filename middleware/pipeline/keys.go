package pipeline

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

// RequestKey é o fingerprint padrão do cache: método + ":" + path com query.
func RequestKey(r *http.Request) string {
	return r.Method + ":" + r.URL.RequestURI()
}

// ClientKey identifica o cliente que faz a requisição.
//
// Ordem: header configurado (ex: X-Api-Key), primeiro IP do X-Forwarded-For
// (somente se trustXFF), host do RemoteAddr e por fim "unknown".
func ClientKey(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// IsReadMethod informa se o método não tem efeitos colaterais e pode ser cacheado.
func IsReadMethod(method string) bool {
	return method == http.MethodGet
}
