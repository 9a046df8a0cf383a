package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
)

// Realtime holds the coordination server configuration. Every field is
// backed by an environment variable and overridable by a CLI flag.
type Realtime struct {
	Host string
	Port int

	MaxConnections  int
	MaxRooms        int
	MaxUsersPerRoom int

	RateLimitMessagesPerSecond int
	RateLimitBurst             int

	MaxMessagesPerRoom int
	MaxRoomsInCache    int
	MessageTTLHours    int

	MaxScreenSharesPerRoom     int
	ScreenShareTimeoutSeconds  int
	MaxViewersPerShare         int
	EnableScreenShareRecording bool

	Verbose    bool
	CORSOrigin string
}

// DefaultRealtime builds a Realtime config from environment variables,
// falling back to the built-in defaults. CLI flags layer on top of the
// returned values, so precedence is flag > env > default.
func DefaultRealtime() *Realtime {
	return &Realtime{
		Host:                       getEnvOrDefault("HOST", "127.0.0.1"),
		Port:                       getEnvInt("PORT", 9001),
		MaxConnections:             getEnvInt("MAX_CONNECTIONS", 10000),
		MaxRooms:                   getEnvInt("MAX_ROOMS", 50),
		MaxUsersPerRoom:            getEnvInt("MAX_USERS_PER_ROOM", 100),
		RateLimitMessagesPerSecond: getEnvInt("RATE_LIMIT_MESSAGES_PER_SECOND", 10),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 5),
		MaxMessagesPerRoom:         getEnvInt("MAX_MESSAGES_PER_ROOM", 100),
		MaxRoomsInCache:            getEnvInt("MAX_ROOMS_IN_CACHE", 200),
		MessageTTLHours:            getEnvInt("MESSAGE_TTL_HOURS", 24),
		MaxScreenSharesPerRoom:     getEnvInt("MAX_SCREEN_SHARES_PER_ROOM", 1),
		ScreenShareTimeoutSeconds:  getEnvInt("SCREEN_SHARE_TIMEOUT_SECONDS", 3600),
		MaxViewersPerShare:         getEnvInt("MAX_VIEWERS_PER_SHARE", 100),
		EnableScreenShareRecording: getEnvBool("ENABLE_SCREEN_SHARE_RECORDING", false),
		Verbose:                    getEnvBool("VERBOSE", false),
		CORSOrigin:                 os.Getenv("CORS_ORIGIN"),
	}
}

// Validate checks every field and reports all problems at once.
func (c *Realtime) Validate() error {
	var errors []string

	if c.Host == "" {
		errors = append(errors, "host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("port must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.MaxConnections < 1 {
		errors = append(errors, fmt.Sprintf("max-connections must be at least 1 (got %d)", c.MaxConnections))
	}
	if c.MaxRooms < 1 {
		errors = append(errors, fmt.Sprintf("max-rooms must be at least 1 (got %d)", c.MaxRooms))
	}
	if c.MaxUsersPerRoom < 1 {
		errors = append(errors, fmt.Sprintf("max-users-per-room must be at least 1 (got %d)", c.MaxUsersPerRoom))
	}
	if c.RateLimitMessagesPerSecond < 1 {
		errors = append(errors, fmt.Sprintf("rate-limit-messages-per-second must be at least 1 (got %d)", c.RateLimitMessagesPerSecond))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("rate-limit-burst must be at least 1 (got %d)", c.RateLimitBurst))
	}
	if c.MaxMessagesPerRoom < 1 {
		errors = append(errors, fmt.Sprintf("max-messages-per-room must be at least 1 (got %d)", c.MaxMessagesPerRoom))
	}
	if c.MaxRoomsInCache < 1 {
		errors = append(errors, fmt.Sprintf("max-rooms-in-cache must be at least 1 (got %d)", c.MaxRoomsInCache))
	}
	if c.MessageTTLHours < 1 {
		errors = append(errors, fmt.Sprintf("message-ttl-hours must be at least 1 (got %d)", c.MessageTTLHours))
	}
	// The share manager holds one slot per room; reject other values rather
	// than silently ignoring them.
	if c.MaxScreenSharesPerRoom != 1 {
		errors = append(errors, fmt.Sprintf("max-screen-shares-per-room only supports 1 (got %d)", c.MaxScreenSharesPerRoom))
	}
	if c.ScreenShareTimeoutSeconds < 1 {
		errors = append(errors, fmt.Sprintf("screen-share-timeout-seconds must be at least 1 (got %d)", c.ScreenShareTimeoutSeconds))
	}
	if c.MaxViewersPerShare < 1 {
		errors = append(errors, fmt.Sprintf("max-viewers-per-share must be at least 1 (got %d)", c.MaxViewersPerShare))
	}
	if c.CORSOrigin != "" {
		if u, err := url.Parse(c.CORSOrigin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("cors-origin must be a URL with scheme and host (got '%s')", c.CORSOrigin))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logging.Info(context.Background(), "configuration validated",
		zap.String("addr", c.Addr()),
		zap.Int("max_connections", c.MaxConnections),
		zap.Int("max_rooms", c.MaxRooms),
		zap.Int("max_users_per_room", c.MaxUsersPerRoom),
		zap.Int("rate_limit_messages_per_second", c.RateLimitMessagesPerSecond),
		zap.Int("rate_limit_burst", c.RateLimitBurst),
		zap.Int("max_messages_per_room", c.MaxMessagesPerRoom),
		zap.Int("message_ttl_hours", c.MessageTTLHours),
		zap.Int("screen_share_timeout_seconds", c.ScreenShareTimeoutSeconds),
		zap.Bool("screen_share_recording", c.EnableScreenShareRecording),
		zap.String("cors_origin", c.CORSOrigin),
	)

	return nil
}

// Addr returns the listen address in host:port form.
func (c *Realtime) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MessageTTL returns the history TTL as a duration.
func (c *Realtime) MessageTTL() time.Duration {
	return time.Duration(c.MessageTTLHours) * time.Hour
}

// ScreenShareTimeout returns the share expiry as a duration.
func (c *Realtime) ScreenShareTimeout() time.Duration {
	return time.Duration(c.ScreenShareTimeoutSeconds) * time.Second
}

// Assistant holds the AI sidecar service configuration.
type Assistant struct {
	Host             string
	Port             int
	VisionBackendURL string
	NewsFeedURL      string
	Verbose          bool
}

// DefaultAssistant builds an Assistant config from environment variables.
func DefaultAssistant() *Assistant {
	return &Assistant{
		Host:             getEnvOrDefault("HOST", "0.0.0.0"),
		Port:             getEnvInt("PORT", 8001),
		VisionBackendURL: getEnvOrDefault("VISION_BACKEND_URL", "http://localhost:8000/api/vision/analyze"),
		NewsFeedURL:      os.Getenv("NEWS_FEED_URL"),
		Verbose:          getEnvBool("VERBOSE", false),
	}
}

// Validate checks every field and reports all problems at once. NewsFeedURL
// may be empty; the news endpoint reports unavailable until it is set.
func (c *Assistant) Validate() error {
	var errors []string

	if c.Host == "" {
		errors = append(errors, "host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("port must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.VisionBackendURL != "" {
		if u, err := url.Parse(c.VisionBackendURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("vision-backend-url must be a URL with scheme and host (got '%s')", c.VisionBackendURL))
		}
	}
	if c.NewsFeedURL != "" {
		if u, err := url.Parse(c.NewsFeedURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("news-feed-url must be a URL with scheme and host (got '%s')", c.NewsFeedURL))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logging.Info(context.Background(), "configuration validated",
		zap.String("addr", c.Addr()),
		zap.String("vision_backend_url", c.VisionBackendURL),
		zap.String("news_feed_url", c.NewsFeedURL),
	)

	return nil
}

// Addr returns the listen address in host:port form.
func (c *Assistant) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as an int, or the default
// when unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool returns true when the environment variable is set to "true" or "1".
func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value == "true" || value == "1"
}
