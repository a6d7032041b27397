package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"session-handlers/internal/common/apigw"
	"session-handlers/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newMux serves every registered handler plus the health, readiness and
// metrics endpoints.
func newMux(reg *registry.Registry, ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	for _, e := range reg.Entries() {
		mux.Handle(e.Method+" "+e.Path, apigw.HTTPHandler(apigw.HandlerFunc(e.Handler)))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.HandleFunc("GET /handlers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = registry.WriteManifest(w, reg.Manifest(""))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
