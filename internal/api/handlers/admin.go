package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/subrelay/backend/internal/api/middleware"
	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/db/models"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

var startTime = time.Now()

type AdminHandler struct {
	db      *db.Database
	limiter *middleware.RateLimiter
	service *translate.Service
}

// NewAdminHandler creates the admin handler. limiter may be nil when rate limiting is off.
func NewAdminHandler(db *db.Database, limiter *middleware.RateLimiter, service *translate.Service) *AdminHandler {
	return &AdminHandler{db: db, limiter: limiter, service: service}
}

// ListUsers returns all users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		jsonError(w, "failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, users, http.StatusOK)
}

// CreateUser creates a new user
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	switch req.Role {
	case models.RoleAdmin, models.RoleEditor, models.RoleViewer:
	default:
		jsonError(w, "role must be one of: admin, editor, viewer", http.StatusBadRequest)
		return
	}

	id, err := h.db.CreateUser(req.Username, req.Password, req.Role)
	if err != nil {
		jsonError(w, "failed to create user (username may already exist)", http.StatusConflict)
		return
	}

	jsonResponse(w, map[string]any{"id": id, "username": req.Username, "role": req.Role}, http.StatusCreated)
}

// DeleteUser removes a user. The last admin cannot be removed.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	if claims := middleware.GetClaims(r); claims != nil && claims.UserID == id {
		jsonError(w, "cannot delete yourself", http.StatusBadRequest)
		return
	}

	existing, err := h.db.GetUserByID(id)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	if existing.Role == models.RoleAdmin {
		count, err := h.db.CountAdmins()
		if err != nil {
			jsonError(w, "failed to check admin count", http.StatusInternalServerError)
			return
		}
		if count <= 1 {
			jsonError(w, "cannot delete the last admin", http.StatusBadRequest)
			return
		}
	}

	if err := h.db.DeleteUser(id); err != nil {
		jsonError(w, "failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RateLimits returns the current usage of the translate rate limiter.
func (h *AdminHandler) RateLimits(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		jsonResponse(w, middleware.RateLimitStatus{Entries: []middleware.RateLimitEntry{}}, http.StatusOK)
		return
	}
	jsonResponse(w, h.limiter.Status(), http.StatusOK)
}

// ClearRateLimits resets every caller's window.
func (h *AdminHandler) ClearRateLimits(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		h.limiter.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats reports process and engine information for the dashboard.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	jsonResponse(w, map[string]any{
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_bytes":     mem.HeapAlloc,
		"go_version":     runtime.Version(),
		"engines":        h.service.Engines(),
		"default_engine": h.service.DefaultEngine(),
	}, http.StatusOK)
}
