package translate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient streams translations from the Gemini API.
type GeminiClient struct {
	apiKey        string
	modelResolver ModelResolver // dynamically resolves model from DB
	model         string
	logger        *zap.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiClient(apiKey, model string, modelResolver ModelResolver, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		apiKey:        apiKey,
		model:         model,
		modelResolver: modelResolver,
		logger:        logger.With(zap.String("engine", "gemini")),
	}
}

func (g *GeminiClient) Name() string {
	return "gemini"
}

func (g *GeminiClient) currentModel() string {
	if g.modelResolver != nil {
		if m := g.modelResolver(); m != "" {
			return m
		}
	}
	return g.model
}

func (g *GeminiClient) connect(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.initErr
}

func (g *GeminiClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if g.apiKey == "" {
			yield("", fmt.Errorf("gemini: %w", ErrNotConfigured))
			return
		}
		client, err := g.connect(ctx)
		if err != nil {
			yield("", fmt.Errorf("gemini: create client: %w", err))
			return
		}

		model := g.currentModel()
		g.logger.Debug("requesting completion", zap.String("model", model), zap.Int("chars", len(req.Text)))

		cfg := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemMessage(req), genai.RoleUser),
			Temperature:       genai.Ptr[float32](openAITemperature),
			MaxOutputTokens:   openAIMaxTokens,
		}
		for resp, err := range client.Models.GenerateContentStream(ctx, model, genai.Text(UserMessage(req)), cfg) {
			if err != nil {
				yield("", classifyGeminiError(err))
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.Code); kind != nil {
			return fmt.Errorf("gemini: %w: %w", kind, err)
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		if kind := classifyStatus(apiErrPtr.Code); kind != nil {
			return fmt.Errorf("gemini: %w: %w", kind, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("gemini: %w: %w", ErrUpstream, err)
}
