package config

import (
	"testing"
	"time"

	"github.com/antonahmetgaliev/skf/internal/platform/logging"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.StandingsCacheTTL != 60*time.Second {
		t.Fatalf("unexpected StandingsCacheTTL: %s", cfg.StandingsCacheTTL)
	}
	if cfg.MetadataCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected MetadataCacheTTL: %s", cfg.MetadataCacheTTL)
	}
	if cfg.SimGridBaseURL != "https://www.thesimgrid.com" {
		t.Fatalf("unexpected SimGridBaseURL: %q", cfg.SimGridBaseURL)
	}
	if cfg.BWPPointValidity != 8760*time.Hour {
		t.Fatalf("unexpected BWPPointValidity: %s", cfg.BWPPointValidity)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("unexpected LogFormat: %q", cfg.LogFormat)
	}
}

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STANDINGS_CACHE_TTL", "-1s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive STANDINGS_CACHE_TTL")
	}
}

func TestLoad_RefreshChampionshipIDs(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("REFRESH_CHAMPIONSHIP_IDS", " 4087 , 5120,9003 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := []int64{4087, 5120, 9003}
	if len(cfg.RefreshChampionshipIDs) != len(want) {
		t.Fatalf("unexpected id count: %d", len(cfg.RefreshChampionshipIDs))
	}
	for i, id := range want {
		if cfg.RefreshChampionshipIDs[i] != id {
			t.Fatalf("unexpected id at %d: %d", i, cfg.RefreshChampionshipIDs[i])
		}
	}
}

func TestLoad_RefreshChampionshipIDsRejectsGarbage(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("REFRESH_CHAMPIONSHIP_IDS", "4087,abc")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric championship id")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_LOG_FORMAT", "xml")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_LOG_FORMAT")
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://standings.skf-league.example, https://admin.skf-league.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("unexpected origin count: %d", len(cfg.CORSAllowedOrigins))
	}
	if cfg.CORSAllowedOrigins[0] != "https://standings.skf-league.example" {
		t.Fatalf("unexpected origin: %q", cfg.CORSAllowedOrigins[0])
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"info":    logging.LevelInfo,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"":        logging.LevelInfo,
		"bogus":   logging.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
