package configs

import "testing"

// setRequiredEnv fills the variables without which LoadConfig refuses to run.
func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("S3_BUCKET_NAME", "campus-bucket")
	t.Setenv("S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("SIGNUP_CHALLENGE_DIFFICULTY", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected development default, got %q", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.SignupChallenge != 4 {
		t.Errorf("Expected default challenge difficulty 4, got %d", cfg.SignupChallenge)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a development fallback JWT secret")
	}
	if cfg.DatabaseDSN == "" {
		t.Error("Expected a development fallback database DSN")
	}
}

func TestLoadConfigAllowedOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://portal.example.com , https://admin.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("Expected 2 origins, got %d: %v", len(cfg.AllowedOrigins), cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[0] != "https://portal.example.com" {
		t.Errorf("Origins not trimmed: %q", cfg.AllowedOrigins[0])
	}
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("PORT", "not_a_number")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for non-numeric port")
	}

	t.Setenv("PORT", "80")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for privileged port")
	}
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://app@db:5432/campus")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing JWT secret in production")
	}

	t.Setenv("JWT_SECRET", "a_real_secret")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing database DSN in production")
	}
}
