package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
)

// PortfolioService is the collection and lifecycle surface the handlers use
type PortfolioService interface {
	Positions(ctx context.Context, userID int) ([]*models.Position, error)
	Watchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, error)
	ClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, error)
	ReplacePositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.Position, error)
	ReplaceWatchlist(ctx context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error)
	ReplaceClosedPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error)
	ClosedSummary(ctx context.Context, userID int) (*models.ClosedSummary, error)
	Buy(ctx context.Context, userID int, order portfolio.BuyOrder) (*models.Position, error)
	Sell(ctx context.Context, userID int, order portfolio.SellOrder) (*portfolio.SellResult, error)
	BuyFromWatchlist(ctx context.Context, userID int, order portfolio.WatchlistBuyOrder) (*models.Position, error)
}

// UserStore is the user administration surface the handlers use
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	GetUserStats(ctx context.Context, userID int) (*models.UserStats, error)
}

// HealthChecker reports storage connectivity
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc    PortfolioService
	users  UserStore
	health HealthChecker
	log    zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc PortfolioService, users UserStore, health HealthChecker, log zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		users:  users,
		health: health,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// HealthCheck handles GET /health. The process is healthy whenever it can
// answer; storage connectivity is reported alongside.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.health.Health(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": status.Database,
	})
}

// DBStatus handles GET /api/v1/db-status
func (h *Handler) DBStatus(w http.ResponseWriter, r *http.Request) {
	status := h.health.Health(r.Context())
	code := http.StatusOK
	if !status.Connected() {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}

func userIDFrom(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["userID"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError maps service and store errors onto status codes. Storage
// details are logged, not returned to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, portfolio.ErrInvalidOrder):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, portfolio.ErrNotFound), errors.Is(err, database.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, database.ErrStorageUnavailable):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("storage unavailable")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, database.ErrPersistenceFailed):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("persistence failed")
		http.Error(w, "save failed, nothing changed", http.StatusInternalServerError)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
