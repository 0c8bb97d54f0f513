package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/subrelay/backend/internal/db"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
)

// Setting keys read at request time. An empty value means "use the configured default".
const (
	SettingOpenAIModel     = "openai_model"
	SettingGeminiModel     = "gemini_model"
	SettingDefaultLanguage = "default_language"
	SettingGroupBudget     = "max_tokens_in_group"
)

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: SettingOpenAIModel, Label: "OpenAI Model", Group: "engines", Placeholder: "gpt-4-0125-preview"},
	{Key: SettingGeminiModel, Label: "Gemini Model", Group: "engines", Placeholder: "gemini-2.0-flash"},
	{Key: SettingDefaultLanguage, Label: "Default Target Language", Group: "translation", Placeholder: "English", validate: knownLanguage},
	{Key: SettingGroupBudget, Label: "Max Tokens per Group", Group: "translation", Placeholder: "700", validate: positiveInt},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`

	validate func(string) error
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return errors.New("must be a positive integer")
	}
	return nil
}

func knownLanguage(v string) error {
	_, err := tokenize.Resolve(v)
	return err
}

type SettingsHandler struct {
	database *db.Database
}

func NewSettingsHandler(database *db.Database) *SettingsHandler {
	return &SettingsHandler{database: database}
}

// GetSettings returns every known setting with its current value.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	type SettingResponse struct {
		SettingDef
		Value    string `json:"value"`
		HasValue bool   `json:"has_value"`
	}

	result := make([]SettingResponse, 0, len(settingsKeys))
	for _, def := range settingsKeys {
		val := all[def.Key]
		result = append(result, SettingResponse{
			SettingDef: def,
			Value:      val,
			HasValue:   val != "",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// UpdateSettings saves settings from the request body. Unknown keys are ignored and an
// empty value clears the override. Nothing is saved if any value is invalid.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	defs := make(map[string]SettingDef, len(settingsKeys))
	for _, def := range settingsKeys {
		defs[def.Key] = def
	}

	for key, value := range updates {
		def, ok := defs[key]
		if !ok || value == "" || def.validate == nil {
			continue
		}
		if err := def.validate(value); err != nil {
			jsonError(w, key+": "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	for key, value := range updates {
		if _, ok := defs[key]; !ok {
			continue
		}
		if err := h.database.SetSetting(key, value); err != nil {
			jsonError(w, "failed to save setting: "+key, http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
