package middleware

import (
	"crypto/subtle"
	"net/http"

	"marketplace-rest-api/pkg/apierror"
)

// CronSecret only admits requests carrying "Authorization: Bearer <secret>".
// An empty secret rejects everything.
func CronSecret(secret string) func(http.Handler) http.Handler {
	expected := []byte("Bearer " + secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
				writeError(w, apierror.Unauthorized("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
