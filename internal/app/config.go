package app

import (
	"os"
)

type Config struct {
	Endpoint       string // Required: base API URL
	Identity       string // Required: client identifier for token exchanges
	IdentitiesFile string // Path to the identities JSON file (default: ./identities.json)
	TokenRoute     string // Override for the token endpoint path (default: security/token)
	IdentityRoute  string // Override for the identity-lookup path (default: security/token/ident)
	Scope          string // Session scope requested on login (default: public user)
	SessionDB      string // Path to the SQLite session database (default: ./sessions.db)
	SessionID      string // Logical session identifier for this invocation (default: local)
	Env            string // Environment (dev, staging, prod) (default: dev)
	LogLevel       string // Log level (debug, info, warn, error) (default: info)
	LogFormat      string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	return Config{
		Endpoint:       os.Getenv("HALCYON_ENDPOINT"),
		Identity:       os.Getenv("HALCYON_IDENTITY"),
		IdentitiesFile: getEnvOrDefault("HALCYON_IDENTITIES_FILE", "identities.json"),
		TokenRoute:     getEnvOrDefault("HALCYON_ROUTE_TOKEN", "security/token"),
		IdentityRoute:  getEnvOrDefault("HALCYON_ROUTE_IDENTITY", "security/token/ident"),
		Scope:          getEnvOrDefault("HALCYON_SCOPE", "public user"),
		SessionDB:      getEnvOrDefault("HALCYON_SESSION_DB", "sessions.db"),
		SessionID:      getEnvOrDefault("HALCYON_SESSION_ID", "local"),
		Env:            getEnvOrDefault("ENV", "dev"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
