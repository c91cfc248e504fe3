package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/Chin-mayyy/votebank/internal/models"
)

type authKeyCtx struct{}

// AuthenticatedKey returns the API key Auth accepted for this request, or ""
// when the request did not pass through Auth.
func AuthenticatedKey(ctx context.Context) string {
	key, _ := ctx.Value(authKeyCtx{}).(string)
	return key
}

// Auth requires one of apiKeys in headerName (or an api_key cookie). Mount it
// only on the routes it guards.
func Auth(apiKeys []string, headerName string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	valid := func(key string) bool {
		ok := 0
		for _, k := range keys {
			ok |= subtle.ConstantTimeCompare(k, []byte(key))
		}
		return ok == 1
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerName)
			if key == "" {
				if c, err := r.Cookie("api_key"); err == nil {
					key = c.Value
				}
			}

			switch {
			case key == "":
				models.WriteError(w, http.StatusUnauthorized, "API key required")
			case !valid(key):
				models.WriteError(w, http.StatusForbidden, "invalid API key")
			default:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKeyCtx{}, key)))
			}
		})
	}
}
