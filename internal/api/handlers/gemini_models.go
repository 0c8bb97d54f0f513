package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiModel is the frontend-friendly model info
type GeminiModel struct {
	ID          string `json:"id"`           // e.g. "gemini-2.5-flash"
	DisplayName string `json:"display_name"` // e.g. "Gemini 2.5 Flash"
	Description string `json:"description"`
}

// GeminiModelsHandler lists the Gemini text models the configured key can use,
// so the gemini_model setting can be picked from a list.
type GeminiModelsHandler struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	mu           sync.Mutex
	cachedModels []GeminiModel
	cacheTime    time.Time
}

func NewGeminiModelsHandler(apiKey string, logger *zap.Logger) *GeminiModelsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiModelsHandler{
		apiKey:  apiKey,
		baseURL: geminiModelsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// ListModels fetches available Gemini text models from Google API
func (h *GeminiModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		jsonResponse(w, []GeminiModel{}, http.StatusOK)
		return
	}

	models, err := h.getModels(r.Context())
	if err != nil {
		h.logger.Warn("list gemini models", zap.Error(err))
		jsonError(w, "failed to fetch Gemini models: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, models, http.StatusOK)
}

func (h *GeminiModelsHandler) getModels(ctx context.Context) ([]GeminiModel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Cache for an hour, and serve a stale list when Google is unreachable.
	if len(h.cachedModels) > 0 && time.Since(h.cacheTime) < time.Hour {
		return slices.Clone(h.cachedModels), nil
	}

	models, err := h.fetch(ctx)
	if err != nil {
		if len(h.cachedModels) > 0 {
			return slices.Clone(h.cachedModels), nil
		}
		return nil, err
	}

	h.cachedModels = models
	h.cacheTime = time.Now()
	return slices.Clone(models), nil
}

func (h *GeminiModelsHandler) fetch(ctx context.Context) ([]GeminiModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"?pageSize=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google API: status %d", resp.StatusCode)
	}

	var apiResp struct {
		Models []struct {
			Name                       string   `json:"name"`        // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"` // "Gemini 2.5 Flash"
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse Google API response: %w", err)
	}

	models := []GeminiModel{}
	seen := make(map[string]bool)
	for _, m := range apiResp.Models {
		if !slices.Contains(m.SupportedGenerationMethods, "streamGenerateContent") &&
			!slices.Contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}

		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") || strings.Contains(id, "embedding") || seen[id] {
			continue
		}
		seen[id] = true

		models = append(models, GeminiModel{
			ID:          id,
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}

	// Newer versions sort first.
	slices.SortFunc(models, func(a, b GeminiModel) int { return strings.Compare(b.ID, a.ID) })
	return models, nil
}
