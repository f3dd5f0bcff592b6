package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/ghostnet/api/internal/service"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeCommandError maps a command error to a status and a structured
// body. Rule errors carry their stable machine-readable code so clients
// can branch without parsing messages; storage faults stay opaque 500s.
func writeCommandError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	if code := conquest.Code(err); code != "" {
		body["code"] = code
	}
	writeJSON(w, commandStatus(err), body)
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrGameExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotInGame),
		errors.Is(err, conquest.ErrNotCreator),
		errors.Is(err, conquest.ErrPlayerEliminated):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrInvalidStrategy),
		conquest.Code(err) != "":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
