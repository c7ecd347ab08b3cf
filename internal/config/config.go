package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Profile store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

type Config struct {
	Port string

	// Ollama
	OllamaURL   string
	OllamaModel string
	LLMTimeout  time.Duration

	// Auth and CORS
	APIKey        string
	AllowedOrigin string

	// Generation worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Profile persistence
	ProfileStore string
	ProfilePath  string
	RedisAddr    string
	RedisKey     string

	// Export
	PDFPaper   string
	ChromePath string

	// Import
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "3001"),

		OllamaURL:   envOr("OLLAMA_URL", "http://127.0.0.1:11434"),
		OllamaModel: envOr("OLLAMA_MODEL", "llama2"),
		LLMTimeout:  envDuration("LLM_TIMEOUT", 120*time.Second),

		APIKey:        os.Getenv("API_KEY"),
		AllowedOrigin: envOr("ALLOWED_ORIGIN", "*"),

		WorkerCount:  envInt("WORKER_COUNT", 1),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 16),
		JobTTL:       envDuration("JOB_TTL", time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10<<20),

		ProfileStore: strings.ToLower(envOr("PROFILE_STORE", StoreFile)),
		ProfilePath:  envOr("PROFILE_PATH", "data/profile.json"),
		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		RedisKey:     envOr("REDIS_KEY", "resumedraft:profile"),

		PDFPaper:   strings.ToLower(envOr("PDF_PAPER", "letter")),
		ChromePath: os.Getenv("CHROME_PATH"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	return cfg
}

func (c Config) Validate() error {
	u, err := url.Parse(c.OllamaURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("OLLAMA_URL %q is not an absolute URL", c.OllamaURL)
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("OLLAMA_MODEL is required")
	}
	switch c.ProfileStore {
	case StoreFile:
		if c.ProfilePath == "" {
			return fmt.Errorf("PROFILE_PATH is required for the file profile store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis profile store")
		}
	default:
		return fmt.Errorf("PROFILE_STORE must be %q or %q, got %q", StoreFile, StoreRedis, c.ProfileStore)
	}
	switch c.PDFPaper {
	case "letter", "a4":
	default:
		return fmt.Errorf("PDF_PAPER must be letter or a4, got %q", c.PDFPaper)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
