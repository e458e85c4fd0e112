package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Storage backends understood by the submission store.
const (
	StorageFile = "file"
	StorageS3   = "s3"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string
	Debug  bool

	Mail    MailConfig
	Storage StorageConfig

	CORSAllowedOrigins     []string
	BodyLimitBytes         int64
	SecurityHeadersEnabled bool
	ShutdownTimeout        time.Duration
	PprofUser              string
	PprofPass              string

	Obs ObsConfig
}

// MailConfig describes the outbound relay used for operator notifications.
type MailConfig struct {
	Username   string
	Password   string
	Recipient  string
	SenderName string
	Host       string
	Port       int
	Timeout    time.Duration
}

// Configured reports whether both sender identity and secret are present.
func (m MailConfig) Configured() bool {
	return strings.TrimSpace(m.Username) != "" && strings.TrimSpace(m.Password) != ""
}

// StorageConfig selects where submissions are persisted.
type StorageConfig struct {
	Backend string
	DataDir string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3Prefix          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	LogFile          string
	MetricsEnabled   bool
	MetricsNamespace string
	TracingEnabled   bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	smtpPort, err := intSetting(k, "SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	bodyLimit, err := intSetting(k, "HTTP_BODY_LIMIT_BYTES", 64<<10)
	if err != nil {
		return nil, err
	}

	debug := parseBool(k.String("DEBUG"))
	username := strings.TrimSpace(k.String("EMAIL_USERNAME"))
	logLevel := valueOrDefault(k.String("OBS_LOG_LEVEL"), "info")
	if debug && strings.TrimSpace(k.String("OBS_LOG_LEVEL")) == "" {
		logLevel = "debug"
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), "development"),
		Port:   valueOrDefault(k.String("PORT"), "5000"),
		Debug:  debug,
		Mail: MailConfig{
			Username:   username,
			Password:   strings.TrimSpace(k.String("EMAIL_PASSWORD")),
			Recipient:  valueOrDefault(k.String("RECIPIENT_EMAIL"), username),
			SenderName: valueOrDefault(k.String("EMAIL_SENDER_NAME"), "My Website"),
			Host:       valueOrDefault(k.String("SMTP_HOST"), "smtp.gmail.com"),
			Port:       smtpPort,
			Timeout:    parseDuration(k.String("SMTP_TIMEOUT"), "20s"),
		},
		Storage: StorageConfig{
			Backend:           strings.ToLower(valueOrDefault(k.String("STORAGE_BACKEND"), StorageFile)),
			DataDir:           valueOrDefault(k.String("DATA_DIR"), "contact_submissions"),
			S3Bucket:          strings.TrimSpace(k.String("S3_BUCKET")),
			S3Region:          valueOrDefault(k.String("S3_REGION"), "us-east-1"),
			S3Endpoint:        strings.TrimSpace(k.String("S3_ENDPOINT")),
			S3Prefix:          strings.TrimSpace(k.String("S3_PREFIX")),
			S3AccessKeyID:     strings.TrimSpace(k.String("S3_ACCESS_KEY_ID")),
			S3SecretAccessKey: strings.TrimSpace(k.String("S3_SECRET_ACCESS_KEY")),
		},
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:         int64(bodyLimit),
		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		ShutdownTimeout:        parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
		PprofUser:              strings.TrimSpace(k.String("PPROF_BASIC_AUTH_USER")),
		PprofPass:              strings.TrimSpace(k.String("PPROF_BASIC_AUTH_PASS")),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         logLevel,
			LogFile:          strings.TrimSpace(k.String("OBS_LOG_FILE")),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "mailer"),
			TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(c.Port), ":")); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	switch c.Storage.Backend {
	case StorageFile:
		if strings.TrimSpace(c.Storage.DataDir) == "" {
			return errors.New("DATA_DIR is required for file storage")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Mail.Port <= 0 {
		return fmt.Errorf("SMTP_PORT must be positive, got %d", c.Mail.Port)
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("HTTP_BODY_LIMIT_BYTES must be positive, got %d", c.BodyLimitBytes)
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "5000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// intSetting reads an integer key, using fallback only when the key is unset.
func intSetting(k *koanf.Koanf, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric, got %q", key, raw)
	}
	return parsed, nil
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
