package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
)

// Recoverer turns a handler panic into the standard error envelope.
// http.ErrAbortHandler propagates so the server can drop the
// connection as usual.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				writeError(w, r, apperrors.Internal(""))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
