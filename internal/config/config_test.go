package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"PORT":                  "",
		"DEBUG":                 "",
		"EMAIL_USERNAME":        "",
		"EMAIL_PASSWORD":        "",
		"RECIPIENT_EMAIL":       "",
		"SMTP_PORT":             "",
		"SMTP_TIMEOUT":          "",
		"HTTP_BODY_LIMIT_BYTES": "",
		"STORAGE_BACKEND":       "",
		"DATA_DIR":              "",
		"S3_BUCKET":             "",
		"OBS_LOG_LEVEL":         "",
		"CORS_ALLOWED_ORIGINS":  "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, ":5000", cfg.HTTPAddr())
	require.False(t, cfg.Debug)
	require.Equal(t, StorageFile, cfg.Storage.Backend)
	require.Equal(t, "contact_submissions", cfg.Storage.DataDir)
	require.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	require.Equal(t, 587, cfg.Mail.Port)
	require.Equal(t, 20*time.Second, cfg.Mail.Timeout)
	require.Equal(t, "My Website", cfg.Mail.SenderName)
	require.False(t, cfg.Mail.Configured())
	require.Equal(t, "info", cfg.Obs.LogLevel)
	require.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadRecipientFallsBackToUsername(t *testing.T) {
	env := baseEnv()
	env["EMAIL_USERNAME"] = "me@example.com"
	env["EMAIL_PASSWORD"] = "app-secret"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.Mail.Configured())
	require.Equal(t, "me@example.com", cfg.Mail.Recipient)

	env["RECIPIENT_EMAIL"] = "inbox@example.com"
	cfg, err = LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "inbox@example.com", cfg.Mail.Recipient)
}

func TestLoadDebugRaisesLogLevel(t *testing.T) {
	env := baseEnv()
	env["DEBUG"] = "True"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.Debug)
	require.Equal(t, "debug", cfg.Obs.LogLevel)
}

func TestLoadCORSOrigins(t *testing.T) {
	env := baseEnv()
	env["CORS_ALLOWED_ORIGINS"] = "https://www.example.in, https://preview.example.app ,"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.example.in", "https://preview.example.app"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":        {"STORAGE_BACKEND": "ftp"},
		"s3 without bucket":      {"STORAGE_BACKEND": "s3"},
		"non numeric port":       {"PORT": "http"},
		"negative smtp port":     {"SMTP_PORT": "-1"},
		"non numeric smtp port":  {"SMTP_PORT": "submission"},
		"non numeric body limit": {"HTTP_BODY_LIMIT_BYTES": "64k"},
		"zero body limit":        {"HTTP_BODY_LIMIT_BYTES": "0"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range overrides {
				env[k] = v
			}
			_, err := LoadForTests(env)
			require.Error(t, err)
		})
	}
}

func TestLoadS3Backend(t *testing.T) {
	env := baseEnv()
	env["STORAGE_BACKEND"] = "S3"
	env["S3_BUCKET"] = "submissions"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, StorageS3, cfg.Storage.Backend)
	require.Equal(t, "submissions", cfg.Storage.S3Bucket)
	require.Equal(t, "us-east-1", cfg.Storage.S3Region)
}

func TestLoadNumericOverrides(t *testing.T) {
	env := baseEnv()
	env["SMTP_PORT"] = " 465 "
	env["HTTP_BODY_LIMIT_BYTES"] = "1024"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 465, cfg.Mail.Port)
	require.EqualValues(t, 1024, cfg.BodyLimitBytes)
}

func TestLoadReportsMalformedKey(t *testing.T) {
	env := baseEnv()
	env["SMTP_PORT"] = "submission"
	_, err := LoadForTests(env)
	require.EqualError(t, err, `SMTP_PORT must be numeric, got "submission"`)
}
