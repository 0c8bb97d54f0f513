package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/api/middleware"
	"github.com/subrelay/backend/internal/auth"
	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/db/models"
)

type AuthHandler struct {
	db     *db.Database
	jwt    *auth.JWTService
	logger *zap.Logger
}

func NewAuthHandler(db *db.Database, jwt *auth.JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{db: db, jwt: jwt, logger: logger.With(zap.String("component", "auth"))}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges a username and password for a token. Unknown users and wrong
// passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.db.GetUserByUsername(req.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("load user", zap.String("username", req.Username), zap.Error(err))
		jsonError(w, "login failed", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.Password) {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, loginResponse{Token: token, User: user}, http.StatusOK)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, user, http.StatusOK)
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, map[string]string{"error": msg}, status)
}
