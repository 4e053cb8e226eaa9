package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "aftersales/pkg/platform/strings"
)

// Config captures process level configuration so main stays lean. Domain
// settings (warranty policy, notification channels) are constructed
// explicitly in main; this only covers wiring concerns.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	JWTSigningKey string

	ExpirySweepInterval   time.Duration
	ReminderSweepInterval time.Duration
	ReportInterval        time.Duration
	RetentionInterval     time.Duration

	AdminEmail       string
	ReportRecipients []string
	EmailFrom        string

	SMSAPIURL     string
	SMSAPIKey     string
	SMSLineNumber string

	CRMAPIURL           string
	CRMAPIKey           string
	TicketingAPIURL     string
	TicketingAPIKey     string
	TicketingPriority   string
	TicketingAutoAssign bool
	AccountingAPIURL    string
	AccountingAPIKey    string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("AFTERSALES_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("AFTERSALES_POSTGRES_DSN"),
		RedisURL:      os.Getenv("AFTERSALES_REDIS_URL"),
		JWTSigningKey: envOr("AFTERSALES_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		ExpirySweepInterval:   envDuration("AFTERSALES_EXPIRY_SWEEP_INTERVAL", 24*time.Hour),
		ReminderSweepInterval: envDuration("AFTERSALES_REMINDER_SWEEP_INTERVAL", 24*time.Hour),
		ReportInterval:        envDuration("AFTERSALES_REPORT_INTERVAL", 7*24*time.Hour),
		RetentionInterval:     envDuration("AFTERSALES_RETENTION_INTERVAL", 24*time.Hour),

		AdminEmail:       os.Getenv("AFTERSALES_ADMIN_EMAIL"),
		ReportRecipients: envList("AFTERSALES_REPORT_RECIPIENTS"),
		EmailFrom:        os.Getenv("AFTERSALES_EMAIL_FROM"),

		SMSAPIURL:     os.Getenv("AFTERSALES_SMS_API_URL"),
		SMSAPIKey:     os.Getenv("AFTERSALES_SMS_API_KEY"),
		SMSLineNumber: os.Getenv("AFTERSALES_SMS_LINE_NUMBER"),

		CRMAPIURL:           os.Getenv("AFTERSALES_CRM_API_URL"),
		CRMAPIKey:           os.Getenv("AFTERSALES_CRM_API_KEY"),
		TicketingAPIURL:     os.Getenv("AFTERSALES_TICKETING_API_URL"),
		TicketingAPIKey:     os.Getenv("AFTERSALES_TICKETING_API_KEY"),
		TicketingPriority:   envOr("AFTERSALES_TICKETING_PRIORITY", "medium"),
		TicketingAutoAssign: envBool("AFTERSALES_TICKETING_AUTO_ASSIGN", true),
		AccountingAPIURL:    os.Getenv("AFTERSALES_ACCOUNTING_API_URL"),
		AccountingAPIKey:    os.Getenv("AFTERSALES_ACCOUNTING_API_KEY"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pkgstrings.DedupeAndTrim(strings.Split(v, ","))
}
