package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Supported AI providers.
const (
	ProviderGemini       = "gemini"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// DatabaseURL is optional: when empty the service runs with the
	// volatile store only and every project lives in process memory.
	DatabaseURL string `yaml:"databaseURL"`

	AIProvider        string `yaml:"aiProvider"`
	GeminiAPIKey      string `yaml:"geminiAPIKey"`
	GeminiModel       string `yaml:"geminiModel"`
	OllamaURL         string `yaml:"ollamaURL"`
	OllamaModel       string `yaml:"ollamaModel"`
	OpenAICompatURL   string `yaml:"openaiCompatURL"`
	OpenAICompatKey   string `yaml:"openaiCompatAPIKey"`
	OpenAICompatModel string `yaml:"openaiCompatModel"`

	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	GenerateRateLimitPerMinute int    `yaml:"generateRateLimitPerMinute"`

	// TrustedProxies lists proxy CIDRs whose forwarded headers are
	// believed when resolving client addresses for rate-limit keys.
	TrustedProxies []string `yaml:"trustedProxies"`

	// MinIO settings are optional: when the endpoint is empty, exported
	// artifacts are not archived to object storage.
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	JWTSecret       string `yaml:"jwtSecret"`
	JWTIssuer       string `yaml:"jwtIssuer"`
	AnonymousUserID string `yaml:"anonymousUserID"`

	DefaultUnitCount int `yaml:"defaultUnitCount"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("OPENAI_COMPAT_URL"); v != "" {
		cfg.OpenAICompatURL = v
	}
	if v := os.Getenv("OPENAI_COMPAT_API_KEY"); v != "" {
		cfg.OpenAICompatKey = v
	}
	if v := os.Getenv("OPENAI_COMPAT_MODEL"); v != "" {
		cfg.OpenAICompatModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("GENERATE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("DOCFORGE_ANONYMOUS_USER_ID"); v != "" {
		cfg.AnonymousUserID = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	switch strings.TrimSpace(cfg.AIProvider) {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return errors.New("config: geminiAPIKey is required for the gemini provider")
		}
		if cfg.GeminiModel == "" {
			return errors.New("config: geminiModel is required for the gemini provider")
		}
	case ProviderOllama:
		if cfg.OllamaURL == "" {
			return errors.New("config: ollamaURL is required for the ollama provider")
		}
		if cfg.OllamaModel == "" {
			return errors.New("config: ollamaModel is required for the ollama provider")
		}
	case ProviderOpenAICompat:
		if cfg.OpenAICompatURL == "" {
			return errors.New("config: openaiCompatURL is required for the openai-compat provider")
		}
		if cfg.OpenAICompatModel == "" {
			return errors.New("config: openaiCompatModel is required for the openai-compat provider")
		}
	default:
		return fmt.Errorf("config: aiProvider must be one of %s, %s, %s", ProviderGemini, ProviderOllama, ProviderOpenAICompat)
	}
	if cfg.MinioEndpoint != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioAccessKey, minioSecretKey, and minioBucket are required when minioEndpoint is set")
		}
	}
	return nil
}
