package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(handler.log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/db-status", handler.DBStatus).Methods("GET")

	// Collection routes
	users := api.PathPrefix("/users/{userID:[0-9]+}").Subrouter()
	users.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	users.HandleFunc("/portfolio", handler.ReplacePortfolio).Methods("PUT")
	users.HandleFunc("/portfolio/buy", handler.Buy).Methods("POST")
	users.HandleFunc("/portfolio/sell", handler.Sell).Methods("POST")
	users.HandleFunc("/watchlist", handler.GetWatchlist).Methods("GET")
	users.HandleFunc("/watchlist", handler.ReplaceWatchlist).Methods("PUT")
	users.HandleFunc("/watchlist/buy", handler.BuyFromWatchlist).Methods("POST")
	users.HandleFunc("/closed-positions", handler.GetClosedPositions).Methods("GET")
	users.HandleFunc("/closed-positions", handler.ReplaceClosedPositions).Methods("PUT")
	users.HandleFunc("/closed-positions/summary", handler.GetClosedSummary).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/users", handler.GetAllUsers).Methods("GET")
	admin.HandleFunc("/users", handler.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{userID:[0-9]+}/stats", handler.GetUserStats).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
