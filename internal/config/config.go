package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RememberMeTokenTTL time.Duration
	ActionTokenTTL     time.Duration

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	MailerURI    string
	MessagesFile string
}

// Load reads configuration from the environment. A missing JWT secret is a
// hard error: the process must refuse to start rather than sign tokens with
// an empty key.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return &Config{
		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "tradelog_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:   secret,
		JWTIssuer:   getenv("JWT_ISSUER", "tradelog"),
		JWTAudience: getenv("JWT_AUDIENCE", "tradelog-web"),

		AccessTokenTTL:     minutes("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTL:    days("REFRESH_TOKEN_TTL_DAYS", 7),
		RememberMeTokenTTL: days("REFRESH_TOKEN_REMEMBER_DAYS", 30),
		ActionTokenTTL:     minutes("ACTION_TOKEN_TTL_MINUTES", 30),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),

		MailerURI:    os.Getenv("MAILER_URI"),
		MessagesFile: getenv("MESSAGES_FILE", "config/messages.yaml"),
	}, nil
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func minutes(key string, fallback int) time.Duration {
	return time.Duration(intenv(key, fallback)) * time.Minute
}

func days(key string, fallback int) time.Duration {
	return time.Duration(intenv(key, fallback)) * 24 * time.Hour
}

func intenv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
