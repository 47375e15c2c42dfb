package internal

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/nexleads_test")
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_PROVIDER", "")
	t.Setenv("LEAD_SOURCE", "")
	t.Setenv("ADMIN_EMAILS", "")
}

func TestNewConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Errorf("expected development JWT secret fallback")
	}
	if cfg.JWTExpiry != 7*24*time.Hour {
		t.Errorf("expected 7 day JWT expiry, got %v", cfg.JWTExpiry)
	}
	if cfg.StorageProvider != "local" || cfg.LeadSource != "mock" {
		t.Errorf("unexpected providers: storage=%q leads=%q", cfg.StorageProvider, cfg.LeadSource)
	}
	if cfg.BillingEnabled() {
		t.Error("billing should be disabled without Stripe keys")
	}
}

func TestNewConfig_AdminEmails(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_EMAILS", " Boss@Example.com, ,ops@example.com ")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[0] != "boss@example.com" || cfg.AdminEmails[1] != "ops@example.com" {
		t.Errorf("unexpected admin emails: %v", cfg.AdminEmails)
	}
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"production without jwt secret", map[string]string{"ENV": "production"}, "JWT_SECRET"},
		{"unknown storage", map[string]string{"STORAGE_PROVIDER": "ftp"}, "STORAGE_PROVIDER"},
		{"s3 without bucket", map[string]string{"STORAGE_PROVIDER": "s3", "S3_ACCESS_KEY_ID": "a", "S3_SECRET_ACCESS_KEY": "b", "S3_BUCKET": ""}, "S3_BUCKET"},
		{"http lead source without template", map[string]string{"LEAD_SOURCE": "http", "LEAD_SOURCE_URL": "https://leads.example.com"}, "{platform}"},
		{"unknown lead source", map[string]string{"LEAD_SOURCE": "scraper"}, "LEAD_SOURCE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
