package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "secret")
	defer os.Unsetenv("JWT_SECRET")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DefaultTenant != "default-app-id" {
		t.Errorf("Expected default tenant 'default-app-id', got %q", cfg.DefaultTenant)
	}
	if cfg.HistoryStore != "memory" {
		t.Errorf("Expected memory history store, got %q", cfg.HistoryStore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadAIBackend_RequiresGeminiKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when GEMINI_API_KEY is missing")
		}
	}()

	os.Unsetenv("GEMINI_API_KEY")
	LoadAIBackend()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory store", Config{HistoryStore: "memory", BackendConcurrentReqs: 1}, false},
		{"redis without url", Config{HistoryStore: "redis", BackendConcurrentReqs: 1}, true},
		{"redis with url", Config{HistoryStore: "redis", RedisURL: "redis://localhost:6379", BackendConcurrentReqs: 1}, false},
		{"postgres without url", Config{HistoryStore: "postgres", BackendConcurrentReqs: 1}, true},
		{"unknown store", Config{HistoryStore: "firestore", BackendConcurrentReqs: 1}, true},
		{"zero concurrency", Config{HistoryStore: "none"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTimeouts_CoverLongestBackendChain(t *testing.T) {
	cfg := &Config{BackendTimeoutSeconds: 180}

	chain := 4 * 180 * time.Second
	if cfg.RequestTimeout() <= chain {
		t.Errorf("RequestTimeout %v does not cover four backend calls (%v)", cfg.RequestTimeout(), chain)
	}
	if cfg.WriteTimeout() <= cfg.RequestTimeout() {
		t.Errorf("WriteTimeout %v must exceed RequestTimeout %v", cfg.WriteTimeout(), cfg.RequestTimeout())
	}
}
