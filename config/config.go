package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Configuration errors that must stop the run before any record is
// consumed.
var (
	ErrMissingNeo4jURI      = errors.New("NEO4J_URI is required")
	ErrMissingNeo4jUser     = errors.New("NEO4J_USER is required")
	ErrMissingNeo4jPassword = errors.New("NEO4J_PASSWORD is required")
	ErrMissingFeedPath      = errors.New("FEED_PATH is required")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
	BatchSize     int

	NominatimURL   string
	ContactEmail   string
	GeocodeTimeout int // milliseconds
	RateLimitMs    int
	MaxRetries     int

	FeedPath   string
	RawCSVPath string
	RulesPath  string
	LogLevel   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Neo4jURI:      getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", ""),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),
		BatchSize:     getEnvInt("NEO4J_BATCH_SIZE", 200),

		NominatimURL:   getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		ContactEmail:   getEnv("NOMINATIM_EMAIL", ""),
		GeocodeTimeout: getEnvInt("GEOCODE_TIMEOUT_MS", 10000),
		RateLimitMs:    getEnvInt("GEOCODE_RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		FeedPath:   getEnv("FEED_PATH", ""),
		RawCSVPath: getEnv("RAW_CSV_PATH", ""),
		RulesPath:  getEnv("RULES_PATH", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that everything the run cannot proceed without is set.
// A missing store credential is a startup failure, not something to
// discover after records have been accepted.
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return ErrMissingNeo4jURI
	}
	if c.Neo4jUser == "" {
		return ErrMissingNeo4jUser
	}
	if c.Neo4jPassword == "" {
		return ErrMissingNeo4jPassword
	}
	if c.FeedPath == "" {
		return ErrMissingFeedPath
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
