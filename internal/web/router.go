package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the admin API routes and the metrics endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/servers", h.ListServers).Methods("GET")
	api.HandleFunc("/servers/{name}", h.GetServer).Methods("GET")
	api.HandleFunc("/servers/{name}/commands", h.ListCommands).Methods("GET")
	api.HandleFunc("/missing", h.ListMissing).Methods("GET")
	api.HandleFunc("/lookup/{mobileID}", h.LookupMobileID).Methods("GET")
	api.HandleFunc("/unassigned", h.ListUnassigned).Methods("GET")
	api.HandleFunc("/commands/send", h.SendCommand).Methods("POST")

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return r
}

// Serve starts the admin API on the given address. Blocks until the server
// stops.
func Serve(addr string, router *mux.Router) error {
	return http.ListenAndServe(addr, router)
}
