package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pipeline-guard/middleware/pipeline"
	"pipeline-guard/middleware/ratelimit"
	"pipeline-guard/middleware/respcache"
)

type app struct {
	router  *mux.Router
	closers []func()
}

// newApp monta três grupos de rotas:
//
//	/api/auth     strict, sem cache (login nunca é cacheado)
//	/api/content  lenient + cache long
//	/api/...      moderate + cache medium
func newApp(log *zap.Logger) (*app, error) {
	a := &app{router: mux.NewRouter()}

	authLimiter, err := a.limiter(ratelimit.Strict(), log, func(o *ratelimit.Options) {
		o.SkipSuccessfulRequests = true
	})
	if err != nil {
		return nil, err
	}
	contentLimiter, err := a.limiter(ratelimit.Lenient(), log, nil)
	if err != nil {
		return nil, err
	}
	defaultLimiter, err := a.limiter(ratelimit.Moderate(), log, nil)
	if err != nil {
		return nil, err
	}
	contentCache, err := a.cache(respcache.Long(), log)
	if err != nil {
		return nil, err
	}
	defaultCache, err := a.cache(respcache.Medium(), log)
	if err != nil {
		return nil, err
	}

	concurrency := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50, AcquireTimeout: time.Second})
	a.router.Use(mux.MiddlewareFunc(concurrency))

	api := a.router.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(mux.MiddlewareFunc(authLimiter.Middleware()))
	auth.HandleFunc("/login", handleLogin).Methods(http.MethodPost)

	content := api.PathPrefix("/content").Subrouter()
	content.Use(mux.MiddlewareFunc(contentLimiter.Middleware()), mux.MiddlewareFunc(contentCache.Middleware()))
	content.HandleFunc("/lessons", handleLessons).Methods(http.MethodGet)

	rest := api.NewRoute().Subrouter()
	rest.Use(mux.MiddlewareFunc(defaultLimiter.Middleware()), mux.MiddlewareFunc(defaultCache.Middleware()))
	store := newNoteStore()
	rest.HandleFunc("/notes", store.list).Methods(http.MethodGet)
	rest.HandleFunc("/notes", store.create).Methods(http.MethodPost)

	return a, nil
}

func (a *app) limiter(opts ratelimit.Options, log *zap.Logger, tweak func(*ratelimit.Options)) (*ratelimit.Limiter, error) {
	opts.Logger = log
	opts.KeyHeader = "X-Api-Key" // vazio para usar só o IP
	opts.TrustXForwardedFor = true
	if tweak != nil {
		tweak(&opts)
	}
	l, err := ratelimit.New(opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, l.Close)
	return l, nil
}

func (a *app) cache(opts respcache.Options, log *zap.Logger) (*respcache.Cache, error) {
	opts.Logger = log
	c, err := respcache.New(opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, c.Close)
	return c, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		c()
	}
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
		_ = pipeline.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "user and password required"})
		return
	}
	if body.Password != "secret" {
		_ = pipeline.WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	_ = pipeline.WriteJSON(w, http.StatusOK, map[string]string{"token": "token-" + body.User})
}

func handleLessons(w http.ResponseWriter, r *http.Request) {
	_ = pipeline.WriteJSON(w, http.StatusOK, map[string]any{
		"lessons":     []string{"intro", "middleware", "caching"},
		"generatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type note struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type noteStore struct {
	mu    sync.Mutex
	notes []note
}

func newNoteStore() *noteStore { return &noteStore{notes: []note{}} }

func (s *noteStore) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]note(nil), s.notes...)
	s.mu.Unlock()
	_ = pipeline.WriteJSON(w, http.StatusOK, out)
}

func (s *noteStore) create(w http.ResponseWriter, r *http.Request) {
	var n note
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil || n.Text == "" {
		_ = pipeline.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "text required"})
		return
	}
	s.mu.Lock()
	n.ID = len(s.notes) + 1
	s.notes = append(s.notes, n)
	s.mu.Unlock()
	_ = pipeline.WriteJSON(w, http.StatusCreated, n)
}
