package middleware

import (
	"fmt"
	"net"
	"net/http"
)

// TrustedCIDR only admits requests whose X-Real-IP lies inside cidr. An empty
// cidr disables the check.
func TrustedCIDR(cidr string) (func(http.Handler) http.Handler, error) {
	var ipnet *net.IPNet
	if cidr != "" {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted subnet %q: %w", cidr, err)
		}
		ipnet = n
	}

	return func(next http.Handler) http.Handler {
		if ipnet == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(r.Header.Get("X-Real-IP"))
			if ip == nil || !ipnet.Contains(ip) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
