// Package server provides configuration helpers that define runtime defaults,
// validation, room policy and rate-limiting parameters for the chat service.
package server

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Tyrowin/overflowchat/internal/chat"
	"github.com/Tyrowin/overflowchat/internal/transport"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// RoomConfig holds the room capacity and overflow policy. A zero
// MaxOverflowRooms disables overflow rooms.
type RoomConfig struct {
	DefaultCapacity  int
	Capacities       map[string]int
	MaxOverflowRooms int
	AtomicJoin       bool
}

// TLSConfig points at the certificate and key used to serve HTTPS.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether both files are configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	Rooms          RoomConfig
	Transport      string
	TLS            TLSConfig
	ClientDir      string
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		Rooms: RoomConfig{
			DefaultCapacity:  chat.DefaultRoomCapacity,
			MaxOverflowRooms: chat.DefaultMaxOverflowRooms,
		},
		Transport: transport.Gorilla,
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaults.RateLimit.Burst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}

	if cfg.Rooms.DefaultCapacity <= 0 {
		cfg.Rooms.DefaultCapacity = defaults.Rooms.DefaultCapacity
	}

	if cfg.Rooms.MaxOverflowRooms < 0 {
		cfg.Rooms.MaxOverflowRooms = defaults.Rooms.MaxOverflowRooms
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport != transport.Gorilla && cfg.Transport != transport.Gobwas {
		if cfg.Transport != "" {
			log.Printf("Unknown transport %q; using %s", cfg.Transport, defaults.Transport)
		}
		cfg.Transport = defaults.Transport
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		sanitizeConfig(defaultConfig())
		return
	}
	sanitizeConfig(cfg.clone())
}

func (c Config) clone() Config {
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	if c.Rooms.Capacities != nil {
		capacities := make(map[string]int, len(c.Rooms.Capacities))
		for room, n := range c.Rooms.Capacities {
			capacities[room] = n
		}
		c.Rooms.Capacities = capacities
	}
	return c
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	return activeConfig.clone()
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if capacity := os.Getenv("ROOM_DEFAULT_CAPACITY"); capacity != "" {
		cfg.Rooms.DefaultCapacity = parseIntValue(capacity, cfg.Rooms.DefaultCapacity)
	}

	if capacities := os.Getenv("ROOM_CAPACITIES"); capacities != "" {
		cfg.Rooms.Capacities = parseCapacities(capacities)
	}

	if limit := os.Getenv("MAX_OVERFLOW_ROOMS"); limit != "" {
		cfg.Rooms.MaxOverflowRooms = parseNonNegativeInt(limit, cfg.Rooms.MaxOverflowRooms)
	}

	if atomic := os.Getenv("ATOMIC_JOIN"); atomic != "" {
		cfg.Rooms.AtomicJoin = parseBool(atomic, cfg.Rooms.AtomicJoin)
	}

	if name := os.Getenv("WS_TRANSPORT"); name != "" {
		cfg.Transport = name
	}

	cfg.TLS.CertFile = os.Getenv("SSL_CERT_PATH")
	cfg.TLS.KeyFile = os.Getenv("SSL_KEY_PATH")
	cfg.ClientDir = os.Getenv("CLIENT_DIR")

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseNonNegativeInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return defaultValue
}

// parseCapacities reads "room=n" pairs separated by commas. Malformed pairs
// are skipped.
func parseCapacities(value string) map[string]int {
	capacities := make(map[string]int)
	for _, pair := range strings.Split(value, ",") {
		room, n, ok := strings.Cut(pair, "=")
		room = strings.TrimSpace(room)
		if !ok || room == "" {
			log.Printf("Ignoring malformed room capacity %q", pair)
			continue
		}
		capacity := parseIntValue(n, 0)
		if capacity == 0 {
			log.Printf("Ignoring invalid capacity for room %q: %q", room, n)
			continue
		}
		capacities[room] = capacity
	}
	return capacities
}
