package config

import (
	"os"
	"strings"
	"time"
)

// Config holds every setting the service reads from the environment. It is
// built once in main and handed to each collaborator; nothing else in the
// tree touches os.Getenv.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration

	DatabaseDSN string
	RedisAddr   string

	JWTSecret   string
	JWTAudience string

	// Remote media store (upload/delete of image assets).
	MediaUploadURL string
	MediaAPIKey    string
	MediaTimeout   time.Duration

	// Hosted generative vision model used for plant identification.
	InferenceURL     string
	InferenceAPIKey  string
	InferenceModel   string
	InferenceTimeout time.Duration
}

// Load reads the configuration from the environment, applying development
// defaults for everything except credentials.
func Load() Config {
	return Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		DatabaseDSN: getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=verdant port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "redis:6379"),

		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		JWTAudience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),

		MediaUploadURL: getEnv("MEDIA_UPLOAD_URL", "https://media.example.com/v1/assets"),
		MediaAPIKey:    strings.TrimSpace(os.Getenv("MEDIA_API_KEY")),
		MediaTimeout:   getDuration("MEDIA_TIMEOUT", 30*time.Second),

		InferenceURL:     getEnv("INFERENCE_URL", "https://inference.example.com/v1/identify"),
		InferenceAPIKey:  strings.TrimSpace(os.Getenv("INFERENCE_API_KEY")),
		InferenceModel:   getEnv("INFERENCE_MODEL", "plant-vision-1"),
		InferenceTimeout: getDuration("INFERENCE_TIMEOUT", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
