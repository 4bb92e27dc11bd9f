package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	JWTSecret            string
	JWTExpirationMinutes int
	Database             DatabaseConfig
	Mailer               MailerConfig
	SMS                  SMSConfig
	AppURL               string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds SMTP settings for outbound email.
type MailerConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DefaultFrom string
}

// Enabled reports whether an SMTP transport is configured.
func (m MailerConfig) Enabled() bool {
	return m.Host != ""
}

// SMSConfig holds the SMS provider settings.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

// Enabled reports whether an SMS provider is configured.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != "" && s.FromNumber != ""
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hospital"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	smtpPort, err := strconv.Atoi(getEnv("EMAIL_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_PORT: %w", err)
	}

	mailerConfig := MailerConfig{
		Host:        getEnv("EMAIL_HOST", ""),
		Port:        smtpPort,
		Username:    getEnv("EMAIL_USER", ""),
		Password:    getEnv("EMAIL_PASS", ""),
		DefaultFrom: getEnv("EMAIL_FROM", "no-reply@hospital.local"),
	}

	smsConfig := SMSConfig{
		AccountSID: getEnv("SMS_ACCOUNT_SID", ""),
		AuthToken:  getEnv("SMS_AUTH_TOKEN", ""),
		FromNumber: getEnv("SMS_FROM_NUMBER", ""),
		BaseURL:    getEnv("SMS_API_URL", "https://api.twilio.com/2010-04-01"),
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                 getEnv("PORT", "3010"),
		Origin:               getEnv("ORIGIN", "http://localhost:4200"),
		Environment:          getEnv("APP_ENV", "development"),
		JWTSecret:            getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTExpirationMinutes: jwtExpMinutes,
		Database:             dbConfig,
		Mailer:               mailerConfig,
		SMS:                  smsConfig,
		AppURL:               getEnv("APP_URL", "http://localhost:3010"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
