package api

import (
	"encoding/json"
	"net/http"

	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
)

// Buy handles POST /users/{userID}/portfolio/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var order portfolio.BuyOrder
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&order); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	position, err := h.svc.Buy(r.Context(), userID, order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, position)
}

// Sell handles POST /users/{userID}/portfolio/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var order portfolio.SellOrder
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&order); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Sell(r.Context(), userID, order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// BuyFromWatchlist handles POST /users/{userID}/watchlist/buy
func (h *Handler) BuyFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var order portfolio.WatchlistBuyOrder
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&order); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	position, err := h.svc.BuyFromWatchlist(r.Context(), userID, order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, position)
}
