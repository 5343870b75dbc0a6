package types

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v with status as JSON.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err in the envelope with the status its code maps to.
func WriteError(w http.ResponseWriter, err error) {
	apiErr, status := FromAppError(err)
	WriteJSON(w, status, APIResponse{Success: false, Error: apiErr})
}
