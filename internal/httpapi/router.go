package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the API routes with logging and panic recovery.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(RecoverMiddleware())
	r.Use(LoggerMiddleware())

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/operations", h.Submit).Methods(http.MethodPost)
	v1.HandleFunc("/operations", h.List).Methods(http.MethodGet)
	v1.HandleFunc("/operations/{id}", h.Poll).Methods(http.MethodGet)

	return r
}
