package main

import (
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pipeline-guard/internal/logging"
	"pipeline-guard/middleware/pipeline"
)

// upstream-stub é o backend de teste manual do gateway: cada resposta traz o
// contador de chamadas, então um HIT do cache aparece como contador repetido.
func main() {
	log, err := logging.New("info", "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newStub(log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("upstream stub listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}

type itemsResponse struct {
	Items  []string `json:"items"`
	Hit    int64    `json:"hit"`
	Served string   `json:"servedAt"`
}

func newStub(log *zap.Logger) http.Handler {
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		log.Info("items requested", zap.Int64("hit", n), zap.String("query", r.URL.RawQuery))
		_ = pipeline.WriteJSON(w, http.StatusOK, itemsResponse{
			Items:  []string{"alpha", "beta", "gamma"},
			Hit:    n,
			Served: time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	mux.HandleFunc("GET /fail", func(w http.ResponseWriter, r *http.Request) {
		_ = pipeline.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "upstream failure"})
	})
	return mux
}
