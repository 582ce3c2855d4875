package tutor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"

	maxBodyBytes = 1 << 20
)

// Handler serves the tutor endpoint
type Handler struct {
	asker Asker
}

// NewHandler returns the tutor HTTP handler. OPTIONS is answered as a
// pre-flight; every other method is treated as a tutoring request.
func NewHandler(asker Asker) http.Handler {
	return &Handler{asker: asker}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := h.asker.Ask(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	slog.Error("tutor request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
