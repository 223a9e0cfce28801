package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiryDays     int

	LineChannelID         string
	LineChannelSecret     string
	LineCallbackURL       string
	LineMobileCallbackURL string
	AppDeeplinkScheme     string

	AppleClientID string

	// OTPEchoEnabled controls whether issued verification codes are echoed in
	// the verify-phone response. Forced off when AppEnv is "production".
	OTPEchoEnabled bool

	SNSRegion      string
	AllowedOrigins []string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users: getEnv("DYNAMO_TABLE_USERS", "users"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 30),

		LineChannelID:         getEnv("LINE_CHANNEL_ID", ""),
		LineChannelSecret:     getEnv("LINE_CHANNEL_SECRET", ""),
		LineCallbackURL:       getEnv("LINE_CALLBACK_URL", ""),
		LineMobileCallbackURL: getEnv("LINE_MOBILE_CALLBACK_URL", ""),
		AppDeeplinkScheme:     getEnv("APP_DEEPLINK_SCHEME", "plateping"),

		AppleClientID: getEnv("APPLE_CLIENT_ID", ""),

		OTPEchoEnabled: getEnvBool("OTP_ECHO_ENABLED", true),

		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}

	// The echo backdoor must be provably off in production regardless of the
	// env var.
	if cfg.IsProduction() {
		cfg.OTPEchoEnabled = false
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
