package pipeline

import (
	"bytes"
	"net/http"
	"sync"
)

// Snapshot é a visão final da resposta entregue aos listeners do Recorder.
// Header é o conjunto enviado junto com o status.
type Snapshot struct {
	Status  int
	Header  http.Header
	Body    []byte
	Written bool
}

// Recorder envolve um http.ResponseWriter sem alterar o que é entregue ao cliente.
//
// Ele registra o status, opcionalmente copia o corpo e, quando Finish é chamado,
// invoca os listeners registrados com OnFinish exatamente uma vez.
type Recorder struct {
	http.ResponseWriter

	capture     bool
	status      int
	wroteHeader bool
	sentHeader  http.Header
	body        bytes.Buffer

	mu        sync.Mutex
	listeners []func(Snapshot)
	once      sync.Once
}

// NewRecorder cria um Recorder. Com capture=true o corpo escrito é copiado em memória.
func NewRecorder(w http.ResponseWriter, capture bool) *Recorder {
	return &Recorder{ResponseWriter: w, capture: capture}
}

func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
	// headers alterados depois daqui não chegam ao cliente
	r.sentHeader = r.ResponseWriter.Header().Clone()
	r.ResponseWriter.WriteHeader(code)
}

func (r *Recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	if r.capture && n > 0 {
		r.body.Write(p[:n])
	}
	return n, err
}

func (r *Recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		if !r.wroteHeader {
			r.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap permite que http.ResponseController alcance o writer original.
func (r *Recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Status retorna o status escrito, ou 0 se o handler ainda não escreveu nada.
func (r *Recorder) Status() int { return r.status }

func (r *Recorder) Written() bool { return r.wroteHeader }

func (r *Recorder) OnFinish(fn func(Snapshot)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Finish notifica os listeners. Chamadas repetidas são ignoradas.
func (r *Recorder) Finish() {
	r.once.Do(func() {
		snap := Snapshot{
			Status:  r.status,
			Header:  r.sentHeader,
			Written: r.wroteHeader,
		}
		if !r.wroteHeader {
			snap.Header = r.ResponseWriter.Header().Clone()
		}
		if r.capture {
			snap.Body = bytes.Clone(r.body.Bytes())
		}

		r.mu.Lock()
		listeners := r.listeners
		r.mu.Unlock()
		for _, fn := range listeners {
			fn(snap)
		}
	})
}
