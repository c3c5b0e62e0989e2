package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// AI backend the studio talks to
	BackendURL            string
	BackendConcurrentReqs int
	BackendTimeoutSeconds int

	// History persistence: "memory" | "redis" | "postgres" | "none"
	HistoryStore string
	DatabaseURL  string
	RedisURL     string

	// Identity
	JWTSecret     string
	DefaultTenant string

	// Gemini AI (reference backend only)
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	ImagenAPIKey         string

	// Storage for rendered documents (reference backend only)
	StoragePath string

	// Frontend
	FrontendURL string
}

// Load reads the studio server configuration.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := base()
	cfg.Port = getEnvOrDefault("PORT", "8080")
	cfg.JWTSecret = mustGetEnv("JWT_SECRET")
	return cfg
}

// LoadAIBackend reads the configuration of the reference AI backend.
func LoadAIBackend() *Config {
	godotenv.Load()

	cfg := base()
	cfg.Port = getEnvOrDefault("AI_BACKEND_PORT", "5000")
	cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	return cfg
}

func base() *Config {
	return &Config{
		Env:                   getEnvOrDefault("ENV", "development"),
		BackendURL:            getEnvOrDefault("BACKEND_URL", "http://localhost:5000"),
		BackendConcurrentReqs: getEnvAsIntOrDefault("BACKEND_CONCURRENT_REQUESTS", 4),
		BackendTimeoutSeconds: getEnvAsIntOrDefault("BACKEND_TIMEOUT_SECONDS", 180),
		HistoryStore:          getEnvOrDefault("HISTORY_STORE", "memory"),
		DatabaseURL:           getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:              getEnvOrDefault("REDIS_URL", ""),
		DefaultTenant:         getEnvOrDefault("DEFAULT_TENANT", "default-app-id"),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ImagenAPIKey:          getEnvOrDefault("IMAGEN_API_KEY", ""),
		StoragePath:           getEnvOrDefault("STORAGE_PATH", "./uploads"),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}
}

// longestChain is the most backend calls one studio request makes in
// sequence: document generation runs format, style, covers and generate.
const longestChain = 4

// RequestTimeout bounds the work of one studio request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(longestChain*c.BackendTimeoutSeconds+15) * time.Second
}

// WriteTimeout leaves room after RequestTimeout to write the response.
func (c *Config) WriteTimeout() time.Duration {
	return c.RequestTimeout() + 15*time.Second
}

// Validate checks cross-field requirements that individual lookups cannot.
func (c *Config) Validate() error {
	switch c.HistoryStore {
	case "memory", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("HISTORY_STORE=redis requires REDIS_URL")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("HISTORY_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown HISTORY_STORE %q", c.HistoryStore)
	}
	if c.BackendConcurrentReqs < 1 {
		return fmt.Errorf("BACKEND_CONCURRENT_REQUESTS must be positive")
	}
	return nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
