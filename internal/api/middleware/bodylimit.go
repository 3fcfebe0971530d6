package middleware

import "net/http"

// MaxBodySize limits the request body to the given number of bytes. Every
// API payload here is small JSON; batch submissions are line-oriented URL
// and path lists, so 1 MiB leaves generous headroom while keeping oversized
// uploads from tying up memory.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
