package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `validate:"required"`
	SslCertPath string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string `validate:"required"`
	S3Endpoint   string
	BucketName   string `validate:"required"`

	// StorageBackend is s3 or memory. memory keeps uploads in process and is meant for local runs.
	StorageBackend string `validate:"oneof=s3 memory"`

	// LLMProvider selects the text generation backend: groq, gemini or claude.
	LLMProvider     string `validate:"oneof=groq gemini claude"`
	GenModel        string `validate:"required"`
	GroqAPIKey      string `validate:"required_if=LLMProvider groq"`
	GroqBaseURL     string `validate:"omitempty,url"`
	GeminiAPIKey    string `validate:"required_if=LLMProvider gemini"`
	AnthropicAPIKey string `validate:"required_if=LLMProvider claude"`
	MaxTokens       int    `validate:"gte=0"`

	EmbedModel string
	EmbedDim   int `validate:"gte=0"`

	ChunkSize          int           `validate:"gt=0"`
	SummaryConcurrency int           `validate:"gt=0"`
	LLMCallTimeout     time.Duration `validate:"gt=0"`
	LLMMaxRetries      int           `validate:"gte=0"`
	LLMRetryBackoff    time.Duration `validate:"gte=0"`
	LLMMaxBackoff      time.Duration `validate:"gte=0"`
	LLMRateLimit       float64       `validate:"gte=0"`

	IndexWorkers       int           `validate:"gte=0"`
	IndexSweepInterval time.Duration `validate:"gte=0"`

	JWTSecret      string `validate:"required"`
	TokenTTL       time.Duration
	AllowedOrigins []string
	Port           string `validate:"required"`
	LogLevel       string `validate:"oneof=trace debug info warn error"`
	PubMedURL      string `validate:"omitempty,url"`
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "groq"))

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		BucketName:   getEnv("BUCKET_NAME", "myhealth-reports"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "s3")),

		LLMProvider:     provider,
		GenModel:        getEnv("GEN_MODEL", defaultModel(provider)),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 1024),

		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		ChunkSize:          getEnvInt("CHUNK_SIZE", 2000),
		SummaryConcurrency: getEnvInt("SUMMARY_CONCURRENCY", 4),
		LLMCallTimeout:     getEnvDuration("LLM_CALL_TIMEOUT", 60*time.Second),
		LLMMaxRetries:      getEnvInt("LLM_MAX_RETRIES", 2),
		LLMRetryBackoff:    getEnvDuration("LLM_RETRY_BACKOFF", 2*time.Second),
		LLMMaxBackoff:      getEnvDuration("LLM_MAX_BACKOFF", 30*time.Second),
		LLMRateLimit:       getEnvFloat("LLM_RATE_LIMIT", 5),

		IndexWorkers:       getEnvInt("INDEX_WORKERS", 2),
		IndexSweepInterval: getEnvDuration("INDEX_SWEEP_INTERVAL", time.Minute),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PubMedURL:      getEnv("PUBMED_URL", "https://pubmed.ncbi.nlm.nih.gov"),
	}

	return cfg
}

// Validate reports every missing or malformed setting in one error.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-1.5-flash"
	case "claude":
		return "claude-sonnet-4-20250514"
	default:
		return "llama-3.1-70b-versatile"
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not an int, using default %d\n", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not a number, using default %g\n", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not a duration, using default %s\n", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
