package api

import (
	"log/slog"
	"net/http"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, engine Engine, logger *slog.Logger) {
	handler := NewHandler(engine, logger)

	mux.HandleFunc("/api/radar/analyze", handler.Analyze)
	mux.HandleFunc("/api/radar/sources", handler.ListSources)
	mux.HandleFunc("/api/radar/sources/", handler.GetSource)
	mux.HandleFunc("/api/radar/compare", handler.Compare)
	mux.HandleFunc("/api/radar/health", handler.Health)
	mux.HandleFunc("/api/radar/capabilities", handler.Capabilities)
}

// WithCORS allows browser clients on other origins to call the API.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
