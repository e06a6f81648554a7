package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DefaultTTL           time.Duration // Lifetime of a new link (LINK_TTL_MS)
	DefaultClickLimit    int           // Quota applied when create omits one
	CodeLength           int           // Length of generated short codes
	CleanupInterval      time.Duration // Period of the expiry sweep (CLEANUP_INTERVAL_MS)
	NotificationsEnabled bool
	LinkDomain           string // Display prefix for short links, never used for lookups

	RedisURL     string // Optional; enables the event publisher when set
	RedisChannel string

	RateLimitCreateRPS   float64 // Link creations per second per owner
	RateLimitCreateBurst int

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func Load(envFiles ...string) *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DefaultTTL:           time.Duration(v.GetInt64("LINK_TTL_MS")) * time.Millisecond,
		DefaultClickLimit:    v.GetInt("LINK_CLICK_LIMIT"),
		CodeLength:           v.GetInt("LINK_CODE_LENGTH"),
		CleanupInterval:      time.Duration(v.GetInt64("CLEANUP_INTERVAL_MS")) * time.Millisecond,
		NotificationsEnabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		LinkDomain:           v.GetString("LINK_DOMAIN"),
		RedisURL:             v.GetString("REDIS_URL"),
		RedisChannel:         v.GetString("REDIS_CHANNEL"),
		RateLimitCreateRPS:   v.GetFloat64("RATE_LIMIT_CREATE_RPS"),
		RateLimitCreateBurst: v.GetInt("RATE_LIMIT_CREATE_BURST"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		LogFile:              v.GetString("LOG_FILE"),
		LogMaxSizeMB:         v.GetInt("LOG_MAX_SIZE_MB"),
		LogMaxBackups:        v.GetInt("LOG_MAX_BACKUPS"),
		LogMaxAgeDays:        v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.sanitize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LINK_TTL_MS", 86400000)        // 24 hours
	v.SetDefault("LINK_CLICK_LIMIT", 100)        // clicks per link
	v.SetDefault("LINK_CODE_LENGTH", 6)          // base62 characters
	v.SetDefault("CLEANUP_INTERVAL_MS", 3600000) // hourly sweep
	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("LINK_DOMAIN", "clck.ru")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_CHANNEL", "shortly:events")

	v.SetDefault("RATE_LIMIT_CREATE_RPS", 5)
	v.SetDefault("RATE_LIMIT_CREATE_BURST", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
}

// sanitize falls back to defaults for values the core would reject outright.
func (c *Config) sanitize() {
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 24 * time.Hour
	}
	if c.DefaultClickLimit <= 0 {
		c.DefaultClickLimit = 100
	}
	if c.CodeLength <= 0 {
		c.CodeLength = 6
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	// a zero rate never refills the bucket
	if c.RateLimitCreateRPS <= 0 {
		c.RateLimitCreateRPS = 5
	}
	if c.RateLimitCreateBurst < 1 {
		c.RateLimitCreateBurst = 1
	}
}
