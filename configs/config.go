package config

import (
	"os"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	ListenAddr        string
	PostgresURI       string
	BlueskyHost       string
	FrontendURL       string
	SecretKey         string
	CookieName        string
	SchedulerInterval time.Duration
	R2                R2
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":3000"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		BlueskyHost:       getEnv("BLUESKY_HOST", "https://bsky.social"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "bsky_session"),
		SchedulerInterval: getDurationEnv("SCHEDULER_INTERVAL", 30*time.Second),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
