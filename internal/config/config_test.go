package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Expected 24h token TTL, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Billing.SubscriptionDays != 30 {
		t.Errorf("Expected 30 subscription days, got %d", cfg.Billing.SubscriptionDays)
	}
	if cfg.Database.ConnectTimeout != 30*time.Second {
		t.Errorf("Expected 30s connect timeout, got %v", cfg.Database.ConnectTimeout)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Error("Expected error for short JWT secret")
	}
}

func TestLoad_DevSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_DEV_SECRET", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.Secret == "" {
		t.Error("Expected development secret to be set")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("BILLING_SWEEP_INTERVAL", "15m")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Billing.SweepInterval != 15*time.Minute {
		t.Errorf("Expected 15m sweep interval, got %v", cfg.Billing.SweepInterval)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected fallback of 25 open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "n", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=require"
	if got := db.GetDSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFromEnv_DatabaseOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_DEV_SECRET", "")
	t.Setenv("DB_NAME", "seed_target")

	cfg := FromEnv()
	if err := cfg.ValidateDatabase(); err != nil {
		t.Fatalf("ValidateDatabase failed: %v", err)
	}
	if cfg.Database.Name != "seed_target" {
		t.Errorf("Expected database seed_target, got %s", cfg.Database.Name)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected full validation to require a JWT secret")
	}
}
