package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "oidcgate/pkg/domain-errors"
)

func newGetRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestRun_CallbackCompletion(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, req *Request, res *ResponseWriter, done func(error)) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/authorize", req.URL.Path)

		res.WriteHeader(http.StatusSeeOther)
		res.SetHeader("Location", "https://client.example.com/cb?code=abc")
		done(nil)
	})

	result, err := Run(context.Background(), h, newGetRequest(t, "/authorize?client_id=web"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, result.Status)
	assert.Equal(t, "https://client.example.com/cb?code=abc", result.Header.Get("Location"))
	assert.Empty(t, result.Body)
}

func TestRun_StreamEndCompletion(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ *Request, res *ResponseWriter, _ func(error)) {
		res.SetHeader("Content-Type", "application/json")
		_, _ = res.Write([]byte(`{"issuer":`))
		_, _ = res.Write([]byte(`"https://op.example.com"}`))
		res.End()
	})

	result, err := Run(context.Background(), h, newGetRequest(t, "/.well-known/openid-configuration"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.JSONEq(t, `{"issuer":"https://op.example.com"}`, string(result.Body))
}

// Once one completion signal fires, the other must not alter the outcome.
func TestRun_SettlementIsIdempotent(t *testing.T) {
	handlerDone := make(chan error, 1)
	h := HandlerFunc(func(_ context.Context, _ *Request, res *ResponseWriter, done func(error)) {
		res.WriteHeader(http.StatusOK)
		_, _ = res.Write([]byte("first"))
		res.End()

		// Late signals after settlement: all must be no-ops.
		done(errors.New("late failure"))
		res.WriteHeader(http.StatusTeapot)
		_, writeErr := res.Write([]byte("second"))
		res.End()
		handlerDone <- writeErr
	})

	result, err := Run(context.Background(), h, newGetRequest(t, "/jwks.json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "first", string(result.Body))
	assert.Error(t, <-handlerDone, "writes after End must be rejected")
}

func TestRun_CallbackErrorWinsWhenFirst(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ *Request, res *ResponseWriter, done func(error)) {
		done(errors.New("session store unavailable"))
		res.End() // no-op after the error settled the call
	})

	_, err := Run(context.Background(), h, newGetRequest(t, "/token"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session store unavailable")
}

func TestRun_PanicBecomesError(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ *Request, _ *ResponseWriter, _ func(error)) {
		panic("nil map write")
	})

	_, err := Run(context.Background(), h, newGetRequest(t, "/authorize"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc engine panic")
}

func TestRun_HeaderFidelity(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ *Request, res *ResponseWriter, done func(error)) {
		res.SetHeader("Content-Type", "application/json")
		res.AppendHeader("Set-Cookie", "a=1")
		res.AppendHeader("Set-Cookie", "b=2")
		res.SetHeader("Cache-Control", "no-store")
		done(nil)
	})

	result, err := Run(context.Background(), h, newGetRequest(t, "/userinfo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2"}, result.Header.Values("Set-Cookie"))
	assert.Equal(t, "application/json", result.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", result.Header.Get("Cache-Control"))
}

func TestRun_TimeoutSettlesPendingCall(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	h := HandlerFunc(func(_ context.Context, _ *Request, _ *ResponseWriter, _ func(error)) {
		<-block // hung engine: never signals
	})

	start := time.Now()
	_, err := Run(context.Background(), h, newGetRequest(t, "/token"), WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_BodyReadable(t *testing.T) {
	bodies := make(chan string, 1)
	h := HandlerFunc(func(_ context.Context, req *Request, res *ResponseWriter, done func(error)) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, req.Body)
		bodies <- buf.String()
		res.WriteHeader(http.StatusOK)
		done(nil)
	})

	r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("grant_type=authorization_code&code=xyz"))
	_, err := Run(context.Background(), h, r)
	require.NoError(t, err)
	assert.Equal(t, "grant_type=authorization_code&code=xyz", <-bodies)
}

func TestWriteResult(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResult(w, &Result{
		Status: http.StatusBadRequest,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"error":"invalid_request"}`),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"invalid_request"}`, w.Body.String())
}
