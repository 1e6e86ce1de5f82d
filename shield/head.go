package shield

import (
	"net/http"
	"strings"
)

// HeadToGet converts HEAD requests to GET so that route handlers registered
// with r.Get() respond with 200 instead of 405 (Method Not Allowed).
// Go's net/http automatically strips the body for HEAD responses.
//
// Paths under an excluded prefix keep their HEAD method: running a scan to
// answer a HEAD health check would hit the archive for nothing.
func HeadToGet(exclude ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead && !hasPrefix(r.URL.Path, exclude) {
				r.Method = http.MethodGet
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
