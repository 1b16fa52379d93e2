package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rburns/chorepoint/internal/apperr"
)

// writeError renders the taxonomy error shape. Handlers have their own copy;
// middleware cannot import the handler package without a cycle.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.Message(err),
		"kind":  string(apperr.KindOf(err)),
	})
}
