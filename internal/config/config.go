package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string
	RedisURL     string

	// SearXNG research backends (round-robin when more than one)
	SearXNGURLs []string

	// Synthesis provider (OpenAI-compatible)
	SynthesisBaseURL string
	SynthesisAPIKey  string
	SynthesisModel   string

	// Curiosity engine tuning
	MaxPerCycle   int
	CycleInterval time.Duration
	QueueCapacity int

	// Retention window for unkept insights (0 disables cleanup)
	RetentionDays int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	// SEARXNG_URLS (comma-separated) wins over the single SEARXNG_URL
	var searxngURLs []string
	if urls := getEnv("SEARXNG_URLS", ""); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				searxngURLs = append(searxngURLs, trimmed)
			}
		}
	}
	if len(searxngURLs) == 0 {
		if u := getEnv("SEARXNG_URL", ""); u != "" {
			searxngURLs = []string{u}
		}
	}

	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "rilie.db"),
		RedisURL:     getEnv("REDIS_URL", ""),

		SearXNGURLs: searxngURLs,

		SynthesisBaseURL: getEnv("SYNTHESIS_BASE_URL", ""),
		SynthesisAPIKey:  getEnv("SYNTHESIS_API_KEY", ""),
		SynthesisModel:   getEnv("SYNTHESIS_MODEL", ""),

		MaxPerCycle:   getIntEnv("CURIOSITY_MAX_PER_CYCLE", 3),
		CycleInterval: time.Duration(getIntEnv("CURIOSITY_CYCLE_INTERVAL_SECONDS", 60)) * time.Second,
		QueueCapacity: getIntEnv("CURIOSITY_QUEUE_CAPACITY", 50),

		RetentionDays: getIntEnv("CURIOSITY_RETENTION_DAYS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
