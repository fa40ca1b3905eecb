package respcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/middleware/respcache/domain"
)

func newTestCache(t *testing.T, opts Options) (*Cache, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	opts.Clock = clk
	if opts.SweepInterval == 0 {
		opts.SweepInterval = -1
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, clk
}

// countingHandler devolve um corpo diferente a cada chamada.
func countingHandler(calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"call":%d,"path":%q}`, n, r.URL.RequestURI())
	})
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestCache_HitWithinTTLMissAfter(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: 100 * time.Millisecond})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	// A em t=0: miss e guarda
	a := do(h, http.MethodGet, "/items")
	assert.Equal(t, "MISS", a.Header().Get("X-Cache"))
	assert.Equal(t, http.StatusOK, a.Code)

	// B em t=50ms: hit com o corpo de A
	clk.Add(50 * time.Millisecond)
	b := do(h, http.MethodGet, "/items")
	assert.Equal(t, "HIT", b.Header().Get("X-Cache"))
	assert.Equal(t, a.Body.String(), b.Body.String())
	assert.Equal(t, "application/json", b.Header().Get("Content-Type"))
	assert.Equal(t, int64(1), calls.Load())

	// C em t=150ms: miss de novo
	clk.Add(100 * time.Millisecond)
	cc := do(h, http.MethodGet, "/items")
	assert.Equal(t, "MISS", cc.Header().Get("X-Cache"))
	assert.NotEqual(t, a.Body.String(), cc.Body.String())
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_ExactlyAtTTLIsStale(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Second})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	do(h, http.MethodGet, "/items")
	clk.Add(time.Second)
	w := do(h, http.MethodGet, "/items")

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_PostIsNeverCached(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	for i := 0; i < 3; i++ {
		w := do(h, http.MethodPost, "/items")
		assert.Empty(t, w.Header().Get("X-Cache"), "non-read methods pass through untouched")
	}
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_NonSuccessIsNotCached(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	calls := 0
	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusNotFound)
	}))

	do(h, http.MethodGet, "/missing")
	w := do(h, http.MethodGet, "/missing")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCache_CustomKeyAndCondition(t *testing.T) {
	c, _ := newTestCache(t, Options{
		KeyFn: func(r *http.Request) string { return r.URL.Path + "|" + r.Header.Get("Accept-Language") },
		Condition: func(r *http.Request, meta ResponseMeta) bool {
			return meta.Status == http.StatusOK && meta.Header.Get("Cache-Control") != "no-store"
		},
	})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	get := func(lang string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/lessons", nil)
		r.Header.Set("Accept-Language", lang)
		h.ServeHTTP(w, r)
		return w
	}

	get("pt")
	get("en")
	assert.Equal(t, "HIT", get("pt").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", get("en").Header().Get("X-Cache"))
	assert.Equal(t, int64(2), calls.Load())

	noStore := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		_, _ = io.WriteString(w, "private")
	}))
	do(noStore, http.MethodGet, "/private")
	assert.NotContains(t, c.Stats().Keys, "/private|")
}

func TestCache_DoesNotStoreCancelledRequest(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "partial")
	}))

	r := httptest.NewRequest(http.MethodGet, "/slow", nil)
	ctx, cancel := context.WithCancel(r.Context())
	cancel()
	h.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))

	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_HandlerWritingNothingIsNotStored(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do(h, http.MethodGet, "/empty")

	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_DoesNotStorePerRequestHeaders(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "3")
		w.Header().Set("Set-Cookie", "session=abc")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	}))

	do(h, http.MethodGet, "/h")
	w := do(h, http.MethodGet, "/h")

	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))
	for _, p := range []string{"/items", "/items?page=2", "/users/1"} {
		do(h, http.MethodGet, p)
	}
	require.Equal(t, 3, c.Stats().Size)

	n, err := c.Clear(`^GET:/items`)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"GET:/users/1"}, c.Stats().Keys)

	_, err = c.Clear(`(`)
	assert.Error(t, err)

	n, err = c.Clear("")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Stats{Size: 0, Keys: []string{}}, c.Stats())
}

func TestCache_SweepRemovesOnlyExpired(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	do(h, http.MethodGet, "/old")
	clk.Add(30 * time.Second)
	do(h, http.MethodGet, "/new")
	clk.Add(30 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	keys := c.Stats().Keys
	sort.Strings(keys)
	assert.Equal(t, []string{"GET:/new"}, keys)
}

func TestCache_BackgroundSweepRunsOnInterval(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Second, SweepInterval: time.Minute})

	do(c.Middleware()(countingHandler(new(atomic.Int64))), http.MethodGet, "/x")
	require.Equal(t, 1, c.Stats().Size)

	clk.Add(time.Minute)
	assert.Eventually(t, func() bool { return c.Stats().Size == 0 }, time.Second, 5*time.Millisecond)
}

type failingStore struct {
	domain.Store
	getErr error
	setErr error
}

func (f failingStore) Get(string) (domain.Entry, error) { return domain.Entry{}, f.getErr }
func (f failingStore) Set(domain.Entry) error           { return f.setErr }

func TestCache_StoreFailureFallsBackToHandler(t *testing.T) {
	c, _ := newTestCache(t, Options{Store: failingStore{getErr: errors.New("boom")}})

	var calls atomic.Int64
	h := c.Middleware()(countingHandler(&calls))

	for i := 0; i < 2; i++ {
		w := do(h, http.MethodGet, "/items")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"path":"/items"`)
	}
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_SetFailureDoesNotFailRequest(t *testing.T) {
	c, _ := newTestCache(t, Options{Store: failingStore{getErr: domain.ErrNotFound, setErr: errors.New("full")}})

	w := do(c.Middleware()(countingHandler(new(atomic.Int64))), http.MethodGet, "/items")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestCache_PanickingKeyFnFallsBack(t *testing.T) {
	c, _ := newTestCache(t, Options{KeyFn: func(*http.Request) string { panic("bad key") }})

	w := do(c.Middleware()(countingHandler(new(atomic.Int64))), http.MethodGet, "/items")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCache_ConcurrentDuplicatesServeEquivalentPayload(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "same")
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := do(h, http.MethodGet, "/items")
			assert.Equal(t, "same", w.Body.String())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Stats().Size)
}

func TestNew_RejectsNegativeTTL(t *testing.T) {
	_, err := New(Options{TTL: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{SweepInterval: -1})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, DefaultTTL, c.TTL())
	assert.Equal(t, DefaultHeaderName, c.opts.HeaderName)
}

func TestClose_IsIdempotent(t *testing.T) {
	c, err := New(Options{Clock: clock.NewMock()})
	require.NoError(t, err)
	c.Close()
	c.Close()
}
