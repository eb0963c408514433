package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionTTL is how long a session token stays valid after issuance.
const DefaultSessionTTL = 365 * 24 * time.Hour

type Config struct {
	Environment    string
	ServerPort     int
	AllowedOrigins []string
	Database       DatabaseConfig
	Session        SessionConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// SessionConfig carries everything the session subsystem needs. It is
// resolved once at startup; nothing below this layer reads the environment.
type SessionConfig struct {
	Secret         string
	TTL            time.Duration
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

func LoadConfig() Config {
	environment := getEnv("ENV", "development")
	if environment == "dev" || environment == "development" {
		godotenv.Load()
		environment = "development"
	}
	production := environment == "production"

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "credstack"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "credstack_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	sessionConfig := SessionConfig{
		Secret:         getEnv("JWT_SECRET", ""),
		TTL:            getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		CookieDomain:   strings.TrimSpace(getEnv("SESSION_COOKIE_DOMAIN", "")),
		CookieSecure:   getEnvBool("SESSION_COOKIE_SECURE", production),
		CookieSameSite: resolveSameSite(os.Getenv("SESSION_COOKIE_SAMESITE"), production),
	}

	return Config{
		Environment:    environment,
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		AllowedOrigins: splitOrigins(getEnv("API_ALLOWED_ORIGINS", "http://localhost:3001")),
		Database:       dbConfig,
		Session:        sessionConfig,
	}
}

// resolveSameSite accepts only strict, lax, and none (case-insensitive).
// Anything else falls back to the environment default: none in production
// (cross-site frontend), lax in development.
func resolveSameSite(value string, production bool) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	}
	if production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
