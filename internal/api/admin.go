package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// GetAllUsers handles GET /admin/users
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAllUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
	}
	if u.Username == "" || u.Email == "" {
		http.Error(w, "username and email are required", http.StatusBadRequest)
		return
	}

	if err := h.users.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			http.Error(w, "user already exists", http.StatusConflict)
			return
		}
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, u)
}

// GetUserStats handles GET /admin/users/{userID}/stats
func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	stats, err := h.users.GetUserStats(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
