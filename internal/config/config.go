package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenDur   time.Duration

	GoogleClientID string
	KakaoAPIBase   string
	NaverAPIBase   string

	PassAPIBase    string
	PassMerchantID string
	PassAPIKey     string
	PassWidgetURL  string
	CertFlowTTL    time.Duration // identity-link flow expiry

	BankWireAPIBase string
	BankWireAPIKey  string
	BankVerifyTTL   time.Duration // micro-deposit verification record expiry

	PGAPIBase string // payment gateway
	PGAPIKey  string

	CommissionBPS int64 // settlement commission, basis points

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion      string
	FrontendBase   string   // web client base URL, OAuth results redirect here
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	Sessions          string
	BankVerifications string
	BankAccounts      string
	Payments          string
	Deposits          string
	Settlements       string
	Notifications     string
}

// Production reports whether the process serves real traffic. Off production
// the virtual-bank and payment-gateway sandboxes replace the live networks.
func (c *Config) Production() bool { return c.AppEnv == "production" }

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "ap-northeast-2"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:          getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			BankVerifications: getEnv("DYNAMO_TABLE_BANK_VERIFICATIONS", "bank_verifications"),
			BankAccounts:      getEnv("DYNAMO_TABLE_BANK_ACCOUNTS", "bank_accounts"),
			Payments:          getEnv("DYNAMO_TABLE_PAYMENTS", "payments"),
			Deposits:          getEnv("DYNAMO_TABLE_DEPOSITS", "deposits"),
			Settlements:       getEnv("DYNAMO_TABLE_SETTLEMENTS", "settlements"),
			Notifications:     getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "party-settlement-statements"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 1)) * time.Hour,
		RefreshTokenDur:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		KakaoAPIBase:   getEnv("KAKAO_API_BASE", "https://kapi.kakao.com"),
		NaverAPIBase:   getEnv("NAVER_API_BASE", "https://openapi.naver.com"),

		PassAPIBase:    getEnv("PASS_API_BASE", "https://cert.example.com"),
		PassMerchantID: getEnv("PASS_MERCHANT_ID", ""),
		PassAPIKey:     getEnv("PASS_API_KEY", ""),
		PassWidgetURL:  getEnv("PASS_WIDGET_URL", "https://cert.example.com/widget"),
		CertFlowTTL:    time.Duration(getEnvInt("CERT_FLOW_TTL_MINUTES", 10)) * time.Minute,

		BankWireAPIBase: getEnv("BANKWIRE_API_BASE", ""),
		BankWireAPIKey:  getEnv("BANKWIRE_API_KEY", ""),
		BankVerifyTTL:   time.Duration(getEnvInt("BANK_VERIFY_TTL_MINUTES", 30)) * time.Minute,

		PGAPIBase: getEnv("PG_API_BASE", ""),
		PGAPIKey:  getEnv("PG_API_KEY", ""),

		CommissionBPS: int64(getEnvInt("COMMISSION_BPS", 500)),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:      getEnv("SNS_REGION", "ap-northeast-2"),
		FrontendBase:   getEnv("FRONTEND_BASE", "http://localhost:5173"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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
