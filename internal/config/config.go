package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port           int
	DatabaseURL    string
	JWTSecret      string
	AdminSecretKey string
	SetupToken     string
	CORSOrigins    []string
	BcryptCost     int
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4001"))

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	bcryptCost, _ := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	rps, _ := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	burst, _ := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:           port,
		DatabaseURL:    dbURL,
		JWTSecret:      jwtSecret,
		AdminSecretKey: getEnv("ADMIN_SECRET_KEY", "stripe-lite-admin-2024"),
		// Empty SETUP_TOKEN disables the setup endpoints entirely.
		SetupToken:     getEnv("SETUP_TOKEN", ""),
		CORSOrigins:    origins,
		BcryptCost:     bcryptCost,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
