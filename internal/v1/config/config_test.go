package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var testEnvVars = []string{
	"HOST",
	"PORT",
	"MAX_CONNECTIONS",
	"MAX_ROOMS",
	"MAX_USERS_PER_ROOM",
	"RATE_LIMIT_MESSAGES_PER_SECOND",
	"RATE_LIMIT_BURST",
	"MAX_MESSAGES_PER_ROOM",
	"MAX_ROOMS_IN_CACHE",
	"MESSAGE_TTL_HOURS",
	"MAX_SCREEN_SHARES_PER_ROOM",
	"SCREEN_SHARE_TIMEOUT_SECONDS",
	"MAX_VIEWERS_PER_SHARE",
	"ENABLE_SCREEN_SHARE_RECORDING",
	"VERBOSE",
	"CORS_ORIGIN",
	"VISION_BACKEND_URL",
	"NEWS_FEED_URL",
}

// setupTestEnv clears the configuration environment and returns a cleanup
// function restoring the original values.
func setupTestEnv(t *testing.T) func() {
	t.Helper()

	origVars := map[string]string{}
	for _, key := range testEnvVars {
		origVars[key] = os.Getenv(key)
		os.Unsetenv(key)
	}

	return func() {
		for key, val := range origVars {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

func TestDefaultRealtime_BuiltinDefaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected host to default to '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 9001 {
		t.Errorf("Expected port to default to 9001, got %d", cfg.Port)
	}
	if cfg.MaxConnections != 10000 {
		t.Errorf("Expected max connections to default to 10000, got %d", cfg.MaxConnections)
	}
	if cfg.MaxRooms != 50 {
		t.Errorf("Expected max rooms to default to 50, got %d", cfg.MaxRooms)
	}
	if cfg.MaxUsersPerRoom != 100 {
		t.Errorf("Expected max users per room to default to 100, got %d", cfg.MaxUsersPerRoom)
	}
	if cfg.RateLimitMessagesPerSecond != 10 {
		t.Errorf("Expected rate limit to default to 10, got %d", cfg.RateLimitMessagesPerSecond)
	}
	if cfg.RateLimitBurst != 5 {
		t.Errorf("Expected burst to default to 5, got %d", cfg.RateLimitBurst)
	}
	if cfg.MaxMessagesPerRoom != 100 {
		t.Errorf("Expected history cap to default to 100, got %d", cfg.MaxMessagesPerRoom)
	}
	if cfg.MaxRoomsInCache != 200 {
		t.Errorf("Expected room cache cap to default to 200, got %d", cfg.MaxRoomsInCache)
	}
	if cfg.MessageTTLHours != 24 {
		t.Errorf("Expected TTL to default to 24, got %d", cfg.MessageTTLHours)
	}
	if cfg.ScreenShareTimeoutSeconds != 3600 {
		t.Errorf("Expected share timeout to default to 3600, got %d", cfg.ScreenShareTimeoutSeconds)
	}
	if cfg.MaxViewersPerShare != 100 {
		t.Errorf("Expected viewer cap to default to 100, got %d", cfg.MaxViewersPerShare)
	}
	if cfg.EnableScreenShareRecording {
		t.Error("Expected recording to default to disabled")
	}
	if cfg.Verbose {
		t.Error("Expected verbose to default to disabled")
	}
	if cfg.CORSOrigin != "" {
		t.Errorf("Expected CORS origin to default to empty, got '%s'", cfg.CORSOrigin)
	}
}

func TestDefaultRealtime_EnvOverrides(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("HOST", "0.0.0.0")
	os.Setenv("PORT", "9100")
	os.Setenv("MAX_ROOMS", "5")
	os.Setenv("VERBOSE", "true")
	os.Setenv("CORS_ORIGIN", "https://euphorie.app")

	cfg := DefaultRealtime()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got '%s'", cfg.Host)
	}
	if cfg.Port != 9100 {
		t.Errorf("Expected port 9100, got %d", cfg.Port)
	}
	if cfg.MaxRooms != 5 {
		t.Errorf("Expected max rooms 5, got %d", cfg.MaxRooms)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be enabled")
	}
	if cfg.CORSOrigin != "https://euphorie.app" {
		t.Errorf("Expected CORS origin 'https://euphorie.app', got '%s'", cfg.CORSOrigin)
	}
}

func TestRealtimeValidate_Valid(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got: %v", err)
	}
}

func TestRealtimeValidate_InvalidPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	cfg.Port = 99999

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for invalid port, got nil")
	}
	if !strings.Contains(err.Error(), "port must be between 1 and 65535") {
		t.Errorf("Expected error message about port range, got: %v", err)
	}
}

func TestRealtimeValidate_ShareSlotsFixedAtOne(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	cfg.MaxScreenSharesPerRoom = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for unsupported share slot count, got nil")
	}
	if !strings.Contains(err.Error(), "max-screen-shares-per-room only supports 1") {
		t.Errorf("Expected error message about share slots, got: %v", err)
	}
}

func TestRealtimeValidate_AggregatesErrors(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	cfg.Host = ""
	cfg.Port = 0
	cfg.MaxRooms = -1
	cfg.RateLimitBurst = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for invalid config, got nil")
	}
	for _, want := range []string{
		"host must not be empty",
		"port must be between 1 and 65535",
		"max-rooms must be at least 1",
		"rate-limit-burst must be at least 1",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected aggregated error to contain %q, got: %v", want, err)
		}
	}
}

func TestRealtimeValidate_BadCORSOrigin(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	cfg.CORSOrigin = "not a url"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for invalid CORS origin, got nil")
	}
	if !strings.Contains(err.Error(), "cors-origin must be a URL") {
		t.Errorf("Expected error message about CORS origin, got: %v", err)
	}
}

func TestRealtimeAccessors(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultRealtime()
	cfg.Host = "10.0.0.5"
	cfg.Port = 9001
	cfg.MessageTTLHours = 2
	cfg.ScreenShareTimeoutSeconds = 90

	if cfg.Addr() != "10.0.0.5:9001" {
		t.Errorf("Expected addr '10.0.0.5:9001', got '%s'", cfg.Addr())
	}
	if cfg.MessageTTL() != 2*time.Hour {
		t.Errorf("Expected TTL 2h, got %v", cfg.MessageTTL())
	}
	if cfg.ScreenShareTimeout() != 90*time.Second {
		t.Errorf("Expected share timeout 90s, got %v", cfg.ScreenShareTimeout())
	}
}

func TestDefaultAssistant_BuiltinDefaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultAssistant()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Expected host to default to '0.0.0.0', got '%s'", cfg.Host)
	}
	if cfg.Port != 8001 {
		t.Errorf("Expected port to default to 8001, got %d", cfg.Port)
	}
	if cfg.VisionBackendURL != "http://localhost:8000/api/vision/analyze" {
		t.Errorf("Unexpected vision backend default: '%s'", cfg.VisionBackendURL)
	}
	if cfg.NewsFeedURL != "" {
		t.Errorf("Expected news feed URL to default to empty, got '%s'", cfg.NewsFeedURL)
	}
}

func TestAssistantValidate_BadVisionURL(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultAssistant()
	cfg.VisionBackendURL = "://missing-scheme"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for invalid vision backend URL, got nil")
	}
	if !strings.Contains(err.Error(), "vision-backend-url must be a URL") {
		t.Errorf("Expected error message about vision backend URL, got: %v", err)
	}
}

func TestAssistantValidate_EmptyNewsFeedAllowed(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	cfg := DefaultAssistant()
	cfg.NewsFeedURL = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected empty news feed URL to validate, got: %v", err)
	}
}

func TestGetEnvInt(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	tests := []struct {
		name     string
		value    string
		set      bool
		expected int
	}{
		{"Unset", "", false, 42},
		{"Valid", "7", true, 7},
		{"Unparseable", "seven", true, 42},
		{"Negative", "-3", true, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("MAX_ROOMS")
			if tt.set {
				os.Setenv("MAX_ROOMS", tt.value)
			}
			result := getEnvInt("MAX_ROOMS", 42)
			if result != tt.expected {
				t.Errorf("getEnvInt = %d, expected %d", result, tt.expected)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	tests := []struct {
		name     string
		value    string
		set      bool
		expected bool
	}{
		{"Unset", "", false, false},
		{"True", "true", true, true},
		{"One", "1", true, true},
		{"False", "false", true, false},
		{"Garbage", "yes", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("VERBOSE")
			if tt.set {
				os.Setenv("VERBOSE", tt.value)
			}
			result := getEnvBool("VERBOSE", false)
			if result != tt.expected {
				t.Errorf("getEnvBool = %v, expected %v", result, tt.expected)
			}
		})
	}
}
