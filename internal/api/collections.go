package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const maxBodyBytes = 10 << 20

// decodeRecords accepts either a bare JSON array of records or an object
// wrapping them as {"records": [...]}.
func decodeRecords(w http.ResponseWriter, r *http.Request) ([]models.RawRecord, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	body = bytes.TrimSpace(body)

	var records []models.RawRecord
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("invalid records: %w", err)
		}
	} else {
		var req struct {
			Records *[]models.RawRecord `json:"records"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		if req.Records == nil {
			return nil, errors.New("records is required")
		}
		records = *req.Records
	}

	if records == nil {
		records = []models.RawRecord{}
	}
	return records, nil
}

// GetPortfolio handles GET /users/{userID}/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	positions, err := h.svc.Positions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// ReplacePortfolio handles PUT /users/{userID}/portfolio
func (h *Handler) ReplacePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	records, err := decodeRecords(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	positions, err := h.svc.ReplacePositions(r.Context(), userID, records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// GetWatchlist handles GET /users/{userID}/watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.Watchlist(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// ReplaceWatchlist handles PUT /users/{userID}/watchlist
func (h *Handler) ReplaceWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	records, err := decodeRecords(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.ReplaceWatchlist(r.Context(), userID, records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// GetClosedPositions handles GET /users/{userID}/closed-positions
func (h *Handler) GetClosedPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	closed, err := h.svc.ClosedPositions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, closed)
}

// ReplaceClosedPositions handles PUT /users/{userID}/closed-positions
func (h *Handler) ReplaceClosedPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	records, err := decodeRecords(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	closed, err := h.svc.ReplaceClosedPositions(r.Context(), userID, records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, closed)
}

// GetClosedSummary handles GET /users/{userID}/closed-positions/summary
func (h *Handler) GetClosedSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	summary, err := h.svc.ClosedSummary(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
