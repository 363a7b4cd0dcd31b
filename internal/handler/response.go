package handler

import (
	"net/http"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/httputil"
	"github.com/interacthq/interaction-server-go/internal/scope"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err)
}

// requireScope returns the request scope, or answers 401 and returns
// nil when the route was reached without the auth middleware. Callers
// must return immediately on nil.
func requireScope(w http.ResponseWriter, r *http.Request) *scope.Context {
	sc := scope.From(r.Context())
	if sc == nil {
		writeError(w, r, apperrors.Unauthorized(""))
	}
	return sc
}
