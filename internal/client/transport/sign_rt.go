// Package transport holds http.RoundTripper decorators used by the client.
package transport

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/and161185/dora-molecule/internal/utils"
)

// HashHeader carries the hex HMAC-SHA256 of a request or response body.
const HashHeader = "HashSHA256"

// ErrBadSignature is returned when a response signature does not match its body.
var ErrBadSignature = errors.New("response signature mismatch")

// SignRoundTripper signs request bodies and verifies signed responses.
type SignRoundTripper struct {
	Base http.RoundTripper
	Key  string
}

func (s *SignRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := s.Base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if s.Key == "" {
		return rt.RoundTrip(req)
	}

	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()

		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.Header.Set(HashHeader, utils.CalculateHash(body, s.Key))
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	got := resp.Header.Get(HashHeader)
	if got == "" {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if !utils.ValidHash(body, s.Key, got) {
		return nil, ErrBadSignature
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
