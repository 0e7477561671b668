package middleware

import (
	"net/http"
	"strings"
)

// TrimSlash canonicalizes paths with a trailing slash. Reads are redirected
// with 301. Other methods are rewritten in place: a tus client following a
// redirect would replay a PATCH body as GET.
func TrimSlash() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if len(path) <= 1 || !strings.HasSuffix(path, "/") {
				next.ServeHTTP(w, r)
				return
			}
			trimmed := strings.TrimRight(path, "/")
			if trimmed == "" {
				trimmed = "/"
			}

			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				target := trimmed
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}

			r2 := r.Clone(r.Context())
			r2.URL.Path = trimmed
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
		})
	}
}
