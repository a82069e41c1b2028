package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 3100 {
		t.Fatalf("unexpected default port %d", cfg.Server.Port)
	}
	if !cfg.Seed.Enabled {
		t.Fatal("seeding should default to enabled")
	}
	if cfg.Seed.AutoloadPackages {
		t.Fatal("autoload should default to disabled")
	}
	if cfg.Auth.JWTSecret == "" {
		t.Fatal("default jwt secret missing")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("AUTOLOAD_PACKAGES", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("PORT override not applied, got %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("JWT_SECRET override not applied, got %q", cfg.Auth.JWTSecret)
	}
	if !cfg.Seed.AutoloadPackages {
		t.Fatal("AUTOLOAD_PACKAGES override not applied")
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestInvalidPortRejected(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
