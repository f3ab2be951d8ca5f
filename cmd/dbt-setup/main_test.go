package main

import (
	"testing"

	"dbt-setup/internal/app"
)

func TestApplyEnvOverrides_BaseURL(t *testing.T) {
	t.Setenv("DBT_SETUP_BASE_URL", "http://localhost:9999")
	t.Setenv("DBT_SETUP_THEME", "")

	cfg := app.DefaultConfig()

	applyEnvOverrides(&cfg)

	if cfg.BaseURL != "http://localhost:9999" {
		t.Fatalf("base URL = %q, want %q", cfg.BaseURL, "http://localhost:9999")
	}
}

func TestApplyEnvOverrides_Theme(t *testing.T) {
	t.Setenv("DBT_SETUP_BASE_URL", "")
	t.Setenv("DBT_SETUP_THEME", "midnight")

	cfg := app.DefaultConfig()

	applyEnvOverrides(&cfg)

	if cfg.Theme != "midnight" {
		t.Fatalf("theme = %q, want %q", cfg.Theme, "midnight")
	}
	if cfg.BaseURL != app.DefaultBaseURL {
		t.Fatalf("base URL = %q, want default %q", cfg.BaseURL, app.DefaultBaseURL)
	}
}

func TestApplyEnvOverrides_BlankValuesLeaveConfigAlone(t *testing.T) {
	t.Setenv("DBT_SETUP_BASE_URL", "   ")
	t.Setenv("DBT_SETUP_THEME", "   ")

	cfg := app.DefaultConfig()
	cfg.Theme = "porcelain"

	applyEnvOverrides(&cfg)

	if cfg.BaseURL != app.DefaultBaseURL {
		t.Fatalf("base URL = %q, want %q", cfg.BaseURL, app.DefaultBaseURL)
	}
	if cfg.Theme != "porcelain" {
		t.Fatalf("theme = %q, want %q", cfg.Theme, "porcelain")
	}
}
