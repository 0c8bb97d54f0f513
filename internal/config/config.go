package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int      `yaml:"port" toml:"port"`
	DataPath      string   `yaml:"data_path" toml:"data_path"`
	DBPath        string   `yaml:"db_path" toml:"db_path"`
	JWTSecret     string   `yaml:"jwt_secret" toml:"jwt_secret"`
	AdminUsername string   `yaml:"admin_username" toml:"admin_username"`
	AdminPassword string   `yaml:"admin_password" toml:"admin_password"`
	CORSOrigins   []string `yaml:"cors_origins" toml:"cors_origins"`

	Log         LogConfig         `yaml:"log" toml:"log"`
	Translation TranslationConfig `yaml:"translation" toml:"translation"`
	OpenAI      OpenAIConfig      `yaml:"openai" toml:"openai"`
	Gemini      GeminiConfig      `yaml:"gemini" toml:"gemini"`
	DeepL       DeepLConfig       `yaml:"deepl" toml:"deepl"`
	HTTP        HTTPConfig        `yaml:"http" toml:"http"`

	// GeneratedSecret is set when no JWT secret was configured and a random one was made up.
	GeneratedSecret bool `yaml:"-" toml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type TranslationConfig struct {
	Engine       string        `yaml:"engine" toml:"engine"`
	Budget       int           `yaml:"budget" toml:"budget"`
	MaxRetries   int           `yaml:"max_retries" toml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay" toml:"retry_delay"`
	Counter      string        `yaml:"counter" toml:"counter"`
	CounterModel string        `yaml:"counter_model" toml:"counter_model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" toml:"api_key"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
	Model  string `yaml:"model" toml:"model"`
}

type DeepLConfig struct {
	APIKey   string `yaml:"api_key" toml:"api_key"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

type HTTPConfig struct {
	MaxBodyBytes       int64 `yaml:"max_body_bytes" toml:"max_body_bytes"`
	RateLimitPerMinute int   `yaml:"rate_limit" toml:"rate_limit"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:          8080,
		DataPath:      "./data",
		AdminUsername: "admin",
		AdminPassword: "admin",
		CORSOrigins:   []string{"*"},
		Log:           LogConfig{Level: "info", Format: "console"},
		Translation: TranslationConfig{
			Engine:       "openai",
			Budget:       700,
			MaxRetries:   5,
			RetryDelay:   time.Second,
			Counter:      "tiktoken",
			CounterModel: "gpt-4",
		},
		OpenAI: OpenAIConfig{Model: "gpt-4-0125-preview"},
		Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		HTTP:   HTTPConfig{MaxBodyBytes: 8 << 20, RateLimitPerMinute: 30},
	}
}

// Load builds the configuration from defaults, then the file at path (or $SUBRELAY_CONFIG),
// then a .env file in the working directory, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SUBRELAY_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataPath, "subrelay.db")
	}

	// JWT secret: require explicit setting or generate random
	if cfg.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(b)
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("config %s: unsupported format (use .yaml or .toml)", path)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	intEnv := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	intEnv("PORT", &c.Port)
	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)

	// CORS origins: comma-separated list or "*" (default)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Translation.Engine = getEnv("TRANSLATION_ENGINE", c.Translation.Engine)
	intEnv("MAX_TOKENS_IN_GROUP", &c.Translation.Budget)
	intEnv("MAX_RETRIES", &c.Translation.MaxRetries)
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RETRY_DELAY: %w", err))
		} else {
			c.Translation.RetryDelay = d
		}
	}
	c.Translation.Counter = getEnv("UNIT_COUNTER", c.Translation.Counter)
	c.Translation.CounterModel = getEnv("UNIT_COUNTER_MODEL", c.Translation.CounterModel)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.DeepL.APIKey = getEnv("DEEPL_API_KEY", c.DeepL.APIKey)
	c.DeepL.Endpoint = getEnv("DEEPL_ENDPOINT", c.DeepL.Endpoint)

	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_BODY_BYTES: %w", err))
		} else {
			c.HTTP.MaxBodyBytes = n
		}
	}
	intEnv("RATE_LIMIT_PER_MINUTE", &c.HTTP.RateLimitPerMinute)

	return errors.Join(errs...)
}

// Validate reports every setting that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Translation.Budget <= 0 {
		errs = append(errs, fmt.Errorf("translation.budget must be positive, got %d", c.Translation.Budget))
	}
	if c.Translation.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("translation.max_retries must be positive, got %d", c.Translation.MaxRetries))
	}
	if c.Translation.RetryDelay < 0 {
		errs = append(errs, errors.New("translation.retry_delay must not be negative"))
	}
	switch c.Translation.Counter {
	case "tiktoken", "bytes":
	default:
		errs = append(errs, fmt.Errorf("translation.counter %q: want tiktoken or bytes", c.Translation.Counter))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want console or json", c.Log.Format))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be positive"))
	}
	if c.HTTP.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("http.rate_limit must be positive"))
	}

	switch c.Translation.Engine {
	case "mock":
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("translation.engine is openai but OPENAI_API_KEY is not set"))
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("translation.engine is gemini but GEMINI_API_KEY is not set"))
		}
	case "deepl":
		if c.DeepL.APIKey == "" {
			errs = append(errs, errors.New("translation.engine is deepl but DEEPL_API_KEY is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("translation.engine %q: want openai, gemini, deepl or mock", c.Translation.Engine))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
