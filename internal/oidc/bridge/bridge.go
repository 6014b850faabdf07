// Package bridge adapts the single-shot request/response model of net/http
// to the callback-style HTTP surface the provider engine expects. The engine
// writes status, headers and body imperatively and signals completion either
// by invoking the done callback or by ending the response stream; whichever
// fires first settles the bridged call and the other becomes a no-op.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	dErrors "oidcgate/pkg/domain-errors"
)

// Request is the synthetic request handed to the engine: method, URL, a
// readable header collection and the consumed body.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   io.Reader
	// RemoteAddr is carried for logging only.
	RemoteAddr string
}

// Handler is the downstream contract. Implementations write to res
// imperatively and must signal completion exactly once, by calling done
// (optionally with an error) or by calling res.End(). Panics are treated as
// synchronous failures.
type Handler interface {
	Handle(ctx context.Context, req *Request, res *ResponseWriter, done func(error))
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request, res *ResponseWriter, done func(error))

func (f HandlerFunc) Handle(ctx context.Context, req *Request, res *ResponseWriter, done func(error)) {
	f(ctx, req, res, done)
}

// Result is the settled outcome of one bridged call.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// settlement is a one-shot latch. Both completion paths funnel through
// settle; only the first call has effect.
type settlement struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSettlement() *settlement {
	return &settlement{done: make(chan struct{})}
}

func (s *settlement) settle(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// ResponseWriter buffers status, headers and body chunks until the call
// settles. It is safe for use from the goroutine the engine runs on; the
// bridge reads it only after settlement, so no reads race writes.
type ResponseWriter struct {
	mu     sync.Mutex
	status int
	header http.Header
	body   bytes.Buffer
	ended  bool
	latch  *settlement
}

func newResponseWriter(latch *settlement) *ResponseWriter {
	return &ResponseWriter{
		status: http.StatusOK,
		header: make(http.Header),
		latch:  latch,
	}
}

// WriteHeader records the status code. Later calls before End win, matching
// header-map semantics of a buffered response.
func (w *ResponseWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	w.status = status
}

// SetHeader replaces a header value.
func (w *ResponseWriter) SetHeader(key, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	w.header.Set(key, value)
}

// AppendHeader adds a header value without clobbering existing ones.
func (w *ResponseWriter) AppendHeader(key, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return
	}
	w.header.Add(key, value)
}

// Write appends a body chunk.
func (w *ResponseWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return 0, fmt.Errorf("write after end")
	}
	return w.body.Write(p)
}

// End terminates the response stream: no more writes will occur. This is the
// stream-end completion signal.
func (w *ResponseWriter) End() {
	w.mu.Lock()
	if w.ended {
		w.mu.Unlock()
		return
	}
	w.ended = true
	w.mu.Unlock()
	w.latch.settle(nil)
}

// snapshot returns the final status/headers/body triple. Callers must only
// invoke it after settlement.
func (w *ResponseWriter) snapshot() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &Result{
		Status: w.status,
		Header: w.header.Clone(),
		Body:   append([]byte(nil), w.body.Bytes()...),
	}
}

// Option configures a bridged call.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds the wait for a completion signal. On expiry the call
// settles with a timeout error; the downstream handler is not unwound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Run drives one bridged call: it wraps the inbound request, invokes the
// handler, waits for the first completion signal and returns the buffered
// response. A handler error (callback error, panic, or timeout) fails the
// call; the caller maps it to a 500-class response.
func Run(ctx context.Context, h Handler, r *http.Request, opts ...Option) (*Result, error) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	req := &Request{
		Method:     r.Method,
		URL:        r.URL,
		Header:     r.Header.Clone(),
		Body:       r.Body,
		RemoteAddr: r.RemoteAddr,
	}

	latch := newSettlement()
	res := newResponseWriter(latch)

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	// The handler runs on its own goroutine so a synchronously-blocking
	// engine cannot wedge the select below. Panics settle the call as
	// errors rather than crashing the process.
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				latch.settle(fmt.Errorf("oidc engine panic: %v", rec))
			}
		}()
		h.Handle(ctx, req, res, latch.settle)
	}()

	select {
	case <-latch.done:
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			latch.settle(dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "oidc engine did not complete in time"))
		} else {
			latch.settle(dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "request cancelled"))
		}
		<-latch.done
	}

	if latch.err != nil {
		return nil, latch.err
	}
	return res.snapshot(), nil
}

// WriteResult copies a settled result onto a real http.ResponseWriter,
// preserving every header value.
func WriteResult(w http.ResponseWriter, result *Result) {
	for key, values := range result.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(result.Status)
	_, _ = w.Write(result.Body)
}
