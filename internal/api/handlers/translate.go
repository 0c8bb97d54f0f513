package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/api/middleware"
	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

// Response headers set on a translation stream.
const (
	HeaderEngine       = "X-Translation-Engine"
	HeaderFailedGroups = "X-Failed-Groups"
)

type TranslateHandler struct {
	service  *translate.Service
	database *db.Database
	logger   *zap.Logger
}

func NewTranslateHandler(service *translate.Service, database *db.Database, logger *zap.Logger) *TranslateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranslateHandler{service: service, database: database, logger: logger}
}

type translateRequest struct {
	Content      string `json:"content"`
	Language     string `json:"language"`
	Engine       string `json:"engine"`
	Preset       string `json:"preset"`
	PresetID     int64  `json:"preset_id"`
	CustomPrompt string `json:"custom_prompt"`
	Budget       int    `json:"budget"`
}

// decodeBody reports a 413 for bodies cut off by the size limit and a 400 for anything else.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// job turns a request into a translation job, resolving stored presets and the default language.
func (h *TranslateHandler) job(req translateRequest) (translate.Job, int, error) {
	job := translate.Job{
		Content:      req.Content,
		Language:     req.Language,
		Engine:       req.Engine,
		Preset:       req.Preset,
		CustomPrompt: req.CustomPrompt,
		Budget:       req.Budget,
	}
	if job.Language == "" {
		job.Language = h.database.GetSetting(SettingDefaultLanguage, "")
	}
	if job.Budget < 0 {
		return job, http.StatusBadRequest, errors.New("budget must not be negative")
	}

	if req.PresetID > 0 {
		preset, err := h.database.GetTranslationPreset(req.PresetID)
		if errors.Is(err, db.ErrNotFound) {
			return job, http.StatusNotFound, errors.New("preset not found")
		}
		if err != nil {
			return job, http.StatusInternalServerError, errors.New("failed to load preset")
		}
		if job.Preset == "" {
			job.Preset = translate.PresetCustom
		}
		if job.CustomPrompt == "" {
			job.CustomPrompt = preset.Prompt
		}
	}
	if !translate.IsBuiltinPreset(job.Preset) {
		return job, http.StatusBadRequest, errors.New("unknown preset: " + job.Preset)
	}
	return job, 0, nil
}

// Translate streams the translated document back as it is produced, one group at a time.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	job, status, err := h.job(req)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	sw := &streamWriter{w: w, rc: http.NewResponseController(w), engine: job.Engine}
	if sw.engine == "" {
		sw.engine = h.service.DefaultEngine()
	}

	log := h.logger.With(zap.String("request_id", r.Header.Get(middleware.RequestIDHeader)))
	if claims := middleware.GetClaims(r); claims != nil {
		log = log.With(zap.String("user", claims.Username))
	}

	summary, err := h.service.Translate(r.Context(), sw, job)
	if err != nil {
		if sw.started {
			log.Warn("translation stream ended early", zap.Error(err))
			return
		}
		switch {
		case translate.IsClientError(err):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, context.Canceled):
			log.Info("client went away before the first group", zap.Error(err))
		default:
			log.Error("translation failed", zap.Error(err))
			jsonError(w, "translation failed", http.StatusInternalServerError)
		}
		return
	}

	sw.start()
	w.Header().Set(HeaderFailedGroups, strconv.Itoa(summary.FailedGroups))
}

// streamWriter defers the response headers until the first group is written so that
// validation errors can still be reported as JSON.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	engine  string
	started bool
}

func (s *streamWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set(HeaderEngine, s.engine)
	h.Set("Trailer", HeaderFailedGroups)
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.start()
	return s.w.Write(p)
}

func (s *streamWriter) Flush() error {
	err := s.rc.Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}

type planRequest struct {
	Content string `json:"content"`
	Budget  int    `json:"budget"`
}

// Plan shows how a document would be grouped without calling any engine.
func (h *TranslateHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Budget < 0 {
		jsonError(w, "budget must not be negative", http.StatusBadRequest)
		return
	}

	plans, err := h.service.Plan(req.Content, req.Budget)
	if err != nil {
		if translate.IsClientError(err) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, "failed to plan: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]any{"groups": plans}, http.StatusOK)
}

// Engines lists the registered engines and the built-in presets.
func (h *TranslateHandler) Engines(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"default": h.service.DefaultEngine(),
		"engines": h.service.Engines(),
		"presets": translate.BuiltinPresets(),
	}, http.StatusOK)
}

func Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
