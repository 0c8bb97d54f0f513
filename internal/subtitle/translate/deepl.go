package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepLClient translates through the DeepL API. DeepL does not stream, so the whole
// group comes back as a single fragment.
type DeepLClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewDeepLClient(apiKey, endpoint string, logger *zap.Logger) *DeepLClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = deeplAPIURL
	}
	return &DeepLClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
		logger: logger.With(zap.String("engine", "deepl")),
	}
}

func (d *DeepLClient) Name() string {
	return "deepl"
}

func (d *DeepLClient) Translate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if d.apiKey == "" {
			yield("", fmt.Errorf("deepl: %w", ErrNotConfigured))
			return
		}
		text, err := d.translate(ctx, req)
		if err != nil {
			yield("", err)
			return
		}
		yield(text, nil)
	}
}

func (d *DeepLClient) translate(ctx context.Context, req Request) (string, error) {
	if req.Code == "" {
		return "", fmt.Errorf("deepl: %w: language %q has no code", ErrInvalidRequest, req.Language)
	}

	form := url.Values{}
	form.Add("text", req.Text)
	form.Set("target_lang", deeplLangCode(req.Code))

	// DeepL has no free-form prompt; presets map onto formality.
	switch req.Preset {
	case PresetDocumentary:
		form.Set("formality", "prefer_more")
	case PresetAnime:
		form.Set("formality", "prefer_less")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepl: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepl: %w: read body: %w", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		if kind == nil {
			kind = ErrUpstream
		}
		return "", fmt.Errorf("deepl: %w (status %d): %s", kind, resp.StatusCode, string(body))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("deepl: %w: parse response: %w", ErrUpstream, err)
	}
	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("deepl: %w: empty response", ErrUpstream)
	}

	d.logger.Debug("translated", zap.Int("chars", len(req.Text)))
	return deeplResp.Translations[0].Text, nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"en": "EN-US",
		"pt": "PT-BR",
		"zh": "ZH-HANS",
	}
	if mapped, ok := mapping[code]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
