// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the login link flow.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetLinkSigningSecret() string
	GetLoginLinkTTL() time.Duration
	GetFixerLinkTTL() time.Duration
	GetAppBaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// WhatsAppConfig provides settings for the WhatsApp Business API gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppVerifyToken() string
	GetWhatsAppAppSecret() string
}

// SchedulerConfig provides Redis and asynq settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketVoiceNotes() string
	IsMinIOEnabled() bool
}

// AIConfig provides settings for the generative AI capabilities.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetClassifierTimeout() time.Duration
	IsAIEnabled() bool
}

// EmailConfig provides SMTP settings for operator alerts.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAdminAlertEmails() []string
	IsEmailEnabled() bool
}

// MatchingConfig provides fixer reassignment settings.
type MatchingConfig interface {
	GetMaxReassignments() int
	GetOfferTimeout() time.Duration
}

// ConversationConfig provides conversation staleness settings.
type ConversationConfig interface {
	GetConversationStaleAfter() time.Duration
	GetStaleSweepInterval() time.Duration
}

// GeocoderConfig points at a Nominatim-compatible search endpoint. An empty
// URL disables typed addresses.
type GeocoderConfig interface {
	GetGeocoderURL() string
	GetGeocoderCountry() string
}

// JobsConfig provides job pricing and dispatch settings.
type JobsConfig interface {
	GetPlatformFeeCents() int64
	GetCallOutFeeCents(category string) int64
	GetDispatchMode() string
}

// PaymentConfig provides payment gateway redirect settings.
type PaymentConfig interface {
	GetPaymentGatewayURL() string
	GetPaymentMerchantID() string
	GetPaymentSigningKey() string
	GetPublicBaseURL() string
}

// Dispatch modes.
const (
	DispatchImmediate    = "immediate"
	DispatchAfterPayment = "after_payment"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	JWTAccessSecret        string
	AccessTokenTTL         time.Duration
	LinkSigningSecret      string
	LoginLinkTTL           time.Duration
	FixerLinkTTL           time.Duration
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	AppBaseURL             string
	PublicBaseURL          string
	WhatsAppURL            string
	WhatsAppKey            string
	WhatsAppVerifyToken    string
	WhatsAppAppSecret      string
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketVoiceNotes  string
	GeminiAPIKey           string
	GeminiModel            string
	ClassifierTimeout      time.Duration
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	AdminAlertEmails       []string
	MaxReassignments       int
	OfferTimeout           time.Duration
	ConversationStaleAfter time.Duration
	StaleSweepInterval     time.Duration
	GeocoderURL            string
	GeocoderCountry        string
	PlatformFeeCents       int64
	CallOutFees            map[string]int64
	DispatchMode           string
	PaymentGatewayURL      string
	PaymentMerchantID      string
	PaymentSigningKey      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }
func (c *Config) GetLinkSigningSecret() string     { return c.LinkSigningSecret }
func (c *Config) GetLoginLinkTTL() time.Duration   { return c.LoginLinkTTL }
func (c *Config) GetFixerLinkTTL() time.Duration   { return c.FixerLinkTTL }
func (c *Config) GetAppBaseURL() string            { return c.AppBaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string         { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string         { return c.WhatsAppKey }
func (c *Config) GetWhatsAppVerifyToken() string { return c.WhatsAppVerifyToken }
func (c *Config) GetWhatsAppAppSecret() string   { return c.WhatsAppAppSecret }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketVoiceNotes() string { return c.MinioBucketVoiceNotes }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string              { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string               { return c.GeminiModel }
func (c *Config) GetClassifierTimeout() time.Duration { return c.ClassifierTimeout }
func (c *Config) IsAIEnabled() bool                    { return c.GeminiAPIKey != "" }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string             { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string         { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string         { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string        { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string     { return c.EmailFromAddress }
func (c *Config) GetAdminAlertEmails() []string   { return c.AdminAlertEmails }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != "" && len(c.AdminAlertEmails) > 0
}

// MatchingConfig implementation
func (c *Config) GetMaxReassignments() int        { return c.MaxReassignments }
func (c *Config) GetOfferTimeout() time.Duration { return c.OfferTimeout }

// ConversationConfig implementation
func (c *Config) GetConversationStaleAfter() time.Duration { return c.ConversationStaleAfter }
func (c *Config) GetStaleSweepInterval() time.Duration     { return c.StaleSweepInterval }

// GeocoderConfig implementation
func (c *Config) GetGeocoderURL() string     { return c.GeocoderURL }
func (c *Config) GetGeocoderCountry() string { return c.GeocoderCountry }

// JobsConfig implementation
func (c *Config) GetPlatformFeeCents() int64 { return c.PlatformFeeCents }
func (c *Config) GetDispatchMode() string    { return c.DispatchMode }
func (c *Config) GetCallOutFeeCents(category string) int64 {
	if fee, ok := c.CallOutFees[strings.ToLower(category)]; ok {
		return fee
	}
	return c.CallOutFees["general"]
}

// PaymentConfig implementation
func (c *Config) GetPaymentGatewayURL() string { return c.PaymentGatewayURL }
func (c *Config) GetPaymentMerchantID() string { return c.PaymentMerchantID }
func (c *Config) GetPaymentSigningKey() string { return c.PaymentSigningKey }
func (c *Config) GetPublicBaseURL() string     { return c.PublicBaseURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	callOutFees, err := parseFeeTable(getEnv("CALLOUT_FEES_CENTS", "plumbing=35000,electrical=40000,general=30000"))
	if err != nil {
		return nil, fmt.Errorf("CALLOUT_FEES_CENTS: %w", err)
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:         mustDuration(getEnv("JWT_ACCESS_TTL", "24h")),
		LinkSigningSecret:      getEnv("LINK_SIGNING_SECRET", ""),
		LoginLinkTTL:           mustDuration(getEnv("LOGIN_LINK_TTL", "15m")),
		FixerLinkTTL:           mustDuration(getEnv("FIXER_LINK_TTL", "24h")),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:             strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:4200"), "/"),
		PublicBaseURL:          strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		WhatsAppURL:            getEnv("WHATSAPP_API_URL", ""),
		WhatsAppKey:            getEnv("WHATSAPP_API_KEY", ""),
		WhatsAppVerifyToken:    getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:      getEnv("WHATSAPP_APP_SECRET", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketVoiceNotes:  getEnv("MINIO_BUCKET_VOICE_NOTES", "voice-notes"),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ClassifierTimeout:      mustDuration(getEnv("CLASSIFIER_TIMEOUT", "4s")),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "FixMate"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		AdminAlertEmails:       splitCSV(getEnv("ADMIN_ALERT_EMAILS", "")),
		MaxReassignments:       mustInt(getEnv("MAX_REASSIGNMENTS", "3")),
		OfferTimeout:           mustDuration(getEnv("OFFER_TIMEOUT", "30m")),
		ConversationStaleAfter: mustDuration(getEnv("CONVERSATION_STALE_AFTER", "0s")),
		StaleSweepInterval:     mustDuration(getEnv("STALE_SWEEP_INTERVAL", "15m")),
		GeocoderURL:            getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderCountry:        strings.ToLower(getEnv("GEOCODER_COUNTRY", "za")),
		PlatformFeeCents:       mustInt64(getEnv("PLATFORM_FEE_CENTS", "5000")),
		CallOutFees:            callOutFees,
		DispatchMode:           strings.ToLower(getEnv("JOB_DISPATCH_MODE", DispatchImmediate)),
		PaymentGatewayURL:      getEnv("PAYMENT_GATEWAY_URL", "https://sandbox.payfast.co.za/eng/process"),
		PaymentMerchantID:      getEnv("PAYMENT_MERCHANT_ID", ""),
		PaymentSigningKey:      getEnv("PAYMENT_SIGNING_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.LinkSigningSecret == "" {
		return nil, fmt.Errorf("LINK_SIGNING_SECRET is required")
	}
	if cfg.PaymentSigningKey == "" {
		return nil, fmt.Errorf("PAYMENT_SIGNING_KEY is required")
	}
	if cfg.DispatchMode != DispatchImmediate && cfg.DispatchMode != DispatchAfterPayment {
		return nil, fmt.Errorf("JOB_DISPATCH_MODE must be %q or %q", DispatchImmediate, DispatchAfterPayment)
	}
	if cfg.MaxReassignments < 0 {
		return nil, fmt.Errorf("MAX_REASSIGNMENTS cannot be negative")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

// parseFeeTable reads "category=cents" pairs.
func parseFeeTable(value string) (map[string]int64, error) {
	fees := make(map[string]int64)
	for _, pair := range splitCSV(value) {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q", pair)
		}
		cents, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || cents < 0 {
			return nil, fmt.Errorf("invalid amount for %q", key)
		}
		fees[strings.ToLower(strings.TrimSpace(key))] = cents
	}
	return fees, nil
}
