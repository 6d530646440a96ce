// Package handler serves the directory REST surface.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/userdesk/backend/internal/apierrors"
	"github.com/userdesk/backend/internal/model"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeData writes a successful {status, data} envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, model.Envelope{Status: true, Data: data})
}

// writeAck writes a successful {status, message} envelope.
func writeAck(w http.ResponseWriter, status int, ack model.Ack) {
	env := model.Envelope{Status: true, Message: ack.Message}
	if ack.ID != 0 {
		env.Data = map[string]int{"id": ack.ID}
	}
	writeJSON(w, status, env)
}

// userID parses the {id} URL parameter.
func userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		apierrors.NewBadRequestError("invalid user ID").Write(w, r)
		return 0, false
	}
	return id, true
}
