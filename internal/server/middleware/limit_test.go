package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLimitBody(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			readError(w, err)
			return
		}
		_, _ = w.Write(b)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"under_limit", "hello", http.StatusOK},
		{"at_limit", strings.Repeat("a", 16), http.StatusOK},
		{"over_limit", strings.Repeat("a", 17), http.StatusRequestEntityTooLarge},
	}
	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			LimitBody(16)(echo).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(v.body)))
			require.Equal(t, v.status, rr.Code)
			if v.status == http.StatusOK {
				require.Equal(t, v.body, rr.Body.String())
			}
		})
	}
}

func TestLimitBody_LogMiddlewareStopsOversizeBody(t *testing.T) {
	core, obs := observer.New(zap.InfoLevel)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := LimitBody(8)(LogMiddleware(zap.New(core).Sugar())(next))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tools/list_services", bytes.NewReader(make([]byte, 1<<20))))

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.False(t, called)
	require.Equal(t, 1, obs.FilterMessage("failed to read request body").Len())
}

func TestLimitBody_HashMiddlewareStopsOversizeBody(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := LimitBody(8)(VerifyHashMiddleware("secret")(next))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tools/list_services", bytes.NewReader(make([]byte, 1<<20))))

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.False(t, called)
}
