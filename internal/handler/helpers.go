// Package handler implements the JSON API surface. Handlers translate HTTP
// to service calls and map error kinds onto statuses; authorization beyond
// role checks lives in the middleware gate chain.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{
		"error": apperr.Message(err),
		"kind":  string(apperr.KindOf(err)),
	})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.KindValidationFailed, "invalid JSON body")
	}
	return nil
}

func currentMonthYear() (int, int) {
	now := time.Now().UTC()
	return int(now.Month()), now.Year()
}
