package main

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/subrelay/backend/internal/api/handlers"
	"github.com/subrelay/backend/internal/config"
	"github.com/subrelay/backend/internal/logging"
	"github.com/subrelay/backend/internal/subtitle/tokenize"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

// app carries what every command needs: the loaded configuration and the logger.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads and validates the configuration. override applies command flags on top
// of the file and environment before validation.
func (a *app) setup(override func(*config.Config)) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// settingsReader is satisfied by *db.Database. Commands that run without the
// database pass nil and get the configured values.
type settingsReader interface {
	GetSetting(key, defaultVal string) string
}

func settingResolver(settings settingsReader, key string) translate.ModelResolver {
	return func() string {
		if settings == nil {
			return ""
		}
		return settings.GetSetting(key, "")
	}
}

// newService registers every engine that has credentials, plus the offline mock.
func (a *app) newService(settings settingsReader, japanese tokenize.Tokenizer) (*translate.Service, error) {
	cfg := a.cfg

	counter, err := tokenize.NewCounter(cfg.Translation.Counter, cfg.Translation.CounterModel)
	if err != nil {
		return nil, err
	}

	clients := []translate.Client{translate.EchoClient{}}
	if cfg.OpenAI.APIKey != "" {
		clients = append(clients, translate.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model,
			settingResolver(settings, handlers.SettingOpenAIModel), a.logger))
	}
	if cfg.Gemini.APIKey != "" {
		clients = append(clients, translate.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model,
			settingResolver(settings, handlers.SettingGeminiModel), a.logger))
	}
	if cfg.DeepL.APIKey != "" {
		clients = append(clients, translate.NewDeepLClient(cfg.DeepL.APIKey, cfg.DeepL.Endpoint, a.logger))
	}

	budget := settingResolver(settings, handlers.SettingGroupBudget)
	return translate.NewService(translate.Options{
		DefaultEngine: cfg.Translation.Engine,
		Budget:        cfg.Translation.Budget,
		BudgetResolver: func() int {
			n, _ := strconv.Atoi(budget())
			return n
		},
		Retry: translate.RetryPolicy{
			Attempts: cfg.Translation.MaxRetries,
			Delay:    cfg.Translation.RetryDelay,
			MaxDelay: translate.DefaultRetryPolicy.MaxDelay,
		},
		Counter:    counter,
		Tokenizers: tokenize.NewDefaultRegistry(japanese),
		Logger:     a.logger,
	}, clients...), nil
}
