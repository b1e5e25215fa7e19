package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/and161185/dora-molecule/internal/utils"
)

// HashHeader carries the hex HMAC-SHA256 of a request or response body.
const HashHeader = "HashSHA256"

// VerifyHashMiddleware rejects requests whose HashSHA256 header does not match
// the body and signs responses. It is a no-op when key is empty.
func VerifyHashMiddleware(key string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var bodyBytes []byte
			if r.Body != nil {
				var err error
				bodyBytes, err = io.ReadAll(r.Body)
				if err != nil {
					readError(w, err)
					return
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			got := r.Header.Get(HashHeader)
			if got != "" && !utils.ValidHash(bodyBytes, key, got) {
				http.Error(w, "invalid hash", http.StatusBadRequest)
				return
			}

			capture := &responseCapture{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(capture, r)

			for k, vs := range capture.header {
				w.Header()[k] = vs
			}
			w.Header().Set(HashHeader, utils.CalculateHash(capture.body.Bytes(), key))
			w.WriteHeader(capture.status)
			_, _ = w.Write(capture.body.Bytes())
		})
	}
}

type responseCapture struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *responseCapture) Header() http.Header { return r.header }

func (r *responseCapture) WriteHeader(code int) { r.status = code }

func (r *responseCapture) Write(b []byte) (int, error) {
	return r.body.Write(b)
}
