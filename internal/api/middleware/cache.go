package middleware

import (
	"net/http"
	"strings"
)

// SnapshotCacheControl lets the CDN hold directory reads for the snapshot TTL
// and serve them stale while it revalidates.
const SnapshotCacheControl = "public, s-maxage=600, stale-while-revalidate=1200"

// CacheHeaders sets Cache-Control on GETs under the given path
// prefixes. Everything else is marked no-store.
func CacheHeaders(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := "no-store"
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				for _, prefix := range prefixes {
					if strings.HasPrefix(r.URL.Path, prefix) {
						value = SnapshotCacheControl
						break
					}
				}
			}
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
