package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Notification channels supported by NOTIFICATION_CHANNEL.
const (
	ChannelHTTP = "http"
	ChannelSNS  = "sns"
	ChannelSMTP = "smtp"
)

// Notification failure modes supported by NOTIFY_FAILURE_MODE.
const (
	NotifyFailureIgnore = "ignore"
	NotifyFailureFail   = "fail"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogFormat      string // "json" | "text"
	LogLevel       string
	RequestTimeout time.Duration

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	BcryptCost int

	VerifyCodeTTL    time.Duration
	ResetCodeTTL     time.Duration
	CodeLength       int
	CodeReplacePrior bool // issuing a code deletes earlier live codes for the same email+purpose

	NotificationChannel   string
	NotificationSenderURL string
	NotifyFailureMode     string
	NotifyTimeout         time.Duration

	SNSRegion   string
	SNSTopicARN string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AllowedOrigins []string // CORS allowed origins
	TrustProxy     bool     // take the client address from X-Forwarded-For / X-Real-Ip
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts          string
	AccountEmails     string
	VerificationCodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "8001"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:          getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			AccountEmails:     getEnv("DYNAMO_TABLE_ACCOUNT_EMAILS", "account_emails"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		VerifyCodeTTL:    getEnvDuration("VERIFY_CODE_TTL", 24*time.Hour),
		ResetCodeTTL:     getEnvDuration("RESET_CODE_TTL", 15*time.Minute),
		CodeLength:       getEnvInt("CODE_LENGTH", 12),
		CodeReplacePrior: getEnvBool("CODE_REPLACE_PRIOR", true),

		NotificationChannel:   strings.ToLower(getEnv("NOTIFICATION_CHANNEL", ChannelHTTP)),
		NotificationSenderURL: getEnv("NOTIFICATION_CODE_SENDER_URL", "http://localhost:8002/v1/notifications/code"),
		NotifyFailureMode:     strings.ToLower(getEnv("NOTIFY_FAILURE_MODE", NotifyFailureIgnore)),
		NotifyTimeout:         getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
	}
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

// getEnvDuration accepts Go duration strings ("15m", "24h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
