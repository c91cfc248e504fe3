package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/models"
)

// Recovery turns a handler panic into a 500. Once a streamed answer has
// started the status can no longer change, so the connection is just closed.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := wrap(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("request_id", GetRequestID(r.Context())).
				Str("path", r.URL.Path).
				Msg("panic recovered")
			if !rw.wroteHeader {
				models.WriteError(rw, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
