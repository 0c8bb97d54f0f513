package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/subrelay/backend/internal/db"
)

type PresetsHandler struct {
	database *db.Database
}

func NewPresetsHandler(database *db.Database) *PresetsHandler {
	return &PresetsHandler{database: database}
}

type presetRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

func decodePreset(w http.ResponseWriter, r *http.Request) (presetRequest, bool) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Name == "" || req.Prompt == "" {
		jsonError(w, "name and prompt are required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// pathID parses the {id} URL parameter. what names the resource in the error.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid "+what+" ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// ListPresets returns all saved translation presets
func (h *PresetsHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.database.ListTranslationPresets()
	if err != nil {
		jsonError(w, "failed to list presets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, presets, http.StatusOK)
}

func (h *PresetsHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "preset")
	if !ok {
		return
	}
	preset, err := h.database.GetTranslationPreset(id)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "preset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load preset: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, preset, http.StatusOK)
}

// CreatePreset saves a new translation preset
func (h *PresetsHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePreset(w, r)
	if !ok {
		return
	}

	id, err := h.database.CreateTranslationPreset(req.Name, req.Prompt)
	if err != nil {
		jsonError(w, "failed to create preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]any{
		"id":   id,
		"name": req.Name,
	}, http.StatusCreated)
}

// UpdatePreset updates an existing translation preset
func (h *PresetsHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "preset")
	if !ok {
		return
	}
	req, ok := decodePreset(w, r)
	if !ok {
		return
	}

	err := h.database.UpdateTranslationPreset(id, req.Name, req.Prompt)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "preset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to update preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]any{
		"id":   id,
		"name": req.Name,
	}, http.StatusOK)
}

// DeletePreset removes a saved translation preset
func (h *PresetsHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "preset")
	if !ok {
		return
	}

	err := h.database.DeleteTranslationPreset(id)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "preset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete preset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
