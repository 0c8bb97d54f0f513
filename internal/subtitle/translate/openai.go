package translate

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// ModelResolver returns the model currently selected in settings, or "" for the default.
type ModelResolver func() string

const (
	defaultOpenAIModel = "gpt-4-0125-preview"
	openAIMaxTokens    = 2048
	openAITemperature  = 0.1
)

// OpenAIClient streams chat completions from OpenAI or any compatible endpoint.
type OpenAIClient struct {
	client        openai.Client
	configured    bool
	model         string
	modelResolver ModelResolver
	logger        *zap.Logger
}

// NewOpenAIClient creates the engine. The SDK's own retries are disabled; WithRetry owns that.
func NewOpenAIClient(apiKey, baseURL, model string, resolver ModelResolver, logger *zap.Logger) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:        openai.NewClient(opts...),
		configured:    apiKey != "",
		model:         model,
		modelResolver: resolver,
		logger:        logger.With(zap.String("engine", "openai")),
	}
}

func (o *OpenAIClient) Name() string {
	return "openai"
}

func (o *OpenAIClient) currentModel() string {
	if o.modelResolver != nil {
		if m := o.modelResolver(); m != "" {
			return m
		}
	}
	return o.model
}

func (o *OpenAIClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !o.configured {
			yield("", fmt.Errorf("openai: %w", ErrNotConfigured))
			return
		}

		model := o.currentModel()
		o.logger.Debug("requesting completion", zap.String("model", model), zap.Int("chars", len(req.Text)))

		stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(SystemMessage(req)),
				openai.UserMessage(UserMessage(req)),
			},
			MaxTokens:   openai.Int(openAIMaxTokens),
			Temperature: openai.Float(openAITemperature),
		})
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", classifyOpenAIError(err))
		}
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.StatusCode); kind != nil {
			return fmt.Errorf("openai: %w: %w", kind, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("openai: %w: %w", ErrUpstream, err)
}
