package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit"
	"pipeline-guard/middleware/respcache"
)

type message struct {
	Message string `json:"message"`
}

type clearResult struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}

type limiterInfo struct {
	Max     int    `json:"max"`
	Window  string `json:"window"`
	Windows int    `json:"activeWindows"`
}

// newAdminRouter expõe saúde, métricas e operações de manutenção.
// cache e limiter podem ser nil (componente desligado).
func newAdminRouter(cache *respcache.Cache, limiter *ratelimit.Limiter, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = pipeline.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()

	admin.HandleFunc("/cache", func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			_ = pipeline.WriteJSON(w, http.StatusNotFound, message{Message: "cache disabled"})
			return
		}
		_ = pipeline.WriteJSON(w, http.StatusOK, cache.Stats())
	}).Methods(http.MethodGet)

	admin.HandleFunc("/cache", func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			_ = pipeline.WriteJSON(w, http.StatusNotFound, message{Message: "cache disabled"})
			return
		}
		pattern := r.URL.Query().Get("pattern")
		n, err := cache.Clear(pattern)
		if err != nil {
			_ = pipeline.WriteJSON(w, http.StatusBadRequest, message{Message: err.Error()})
			return
		}
		log.Info("cache cleared via admin", zap.String("pattern", pattern), zap.Int("removed", n))
		_ = pipeline.WriteJSON(w, http.StatusOK, clearResult{Pattern: pattern, Removed: n})
	}).Methods(http.MethodDelete)

	admin.HandleFunc("/ratelimit", func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil {
			_ = pipeline.WriteJSON(w, http.StatusNotFound, message{Message: "rate limit disabled"})
			return
		}
		_ = pipeline.WriteJSON(w, http.StatusOK, limiterInfo{
			Max:     limiter.Max(),
			Window:  limiter.Window().String(),
			Windows: limiter.Windows(),
		})
	}).Methods(http.MethodGet)

	return router
}
