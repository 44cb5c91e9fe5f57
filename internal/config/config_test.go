package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
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

func TestLoad_DefaultsByEnv(t *testing.T) {
	t.Run("prod disables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("UPTRACE_ENABLED", "false")
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=false in prod by default")
		}
	})

	t.Run("dev enables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("UPTRACE_ENABLED", "false")
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=true in dev by default")
		}
	})
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "fantasy-hoops-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "fantasy-hoops-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
			t.Fatalf("unexpected first CORS origin: %s", cfg.CORSAllowedOrigins[0])
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default true", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestLoad_SyncGateDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SyncTTL != time.Hour || cfg.SyncDebounce != 30*time.Second || cfg.SyncLease != 10*time.Minute {
		t.Fatalf("unexpected sync windows: ttl=%s debounce=%s lease=%s", cfg.SyncTTL, cfg.SyncDebounce, cfg.SyncLease)
	}
	if cfg.SyncGateBackend != GateBackendMemory {
		t.Fatalf("expected memory gate by default, got %q", cfg.SyncGateBackend)
	}
	if cfg.SyncSweepCron != "@every 15m" {
		t.Fatalf("unexpected sweep cron %q", cfg.SyncSweepCron)
	}
	if cfg.StorageBackend != StorageBackendPostgres {
		t.Fatalf("expected postgres storage by default, got %q", cfg.StorageBackend)
	}
}

func TestLoad_SyncValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero ttl", key: "SYNC_TTL", value: "0s"},
		{name: "negative debounce", key: "SYNC_DEBOUNCE", value: "-1s"},
		{name: "bad lease", key: "SYNC_LEASE", value: "soon"},
		{name: "zero workers", key: "SYNC_CATEGORY_WORKERS", value: "0"},
		{name: "unknown gate", key: "SYNC_GATE_BACKEND", value: "etcd"},
		{name: "unknown storage", key: "STORAGE_BACKEND", value: "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_ZeroDebounceAllowed(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("SYNC_DEBOUNCE", "0s")
	t.Setenv("SYNC_SWEEP_CRON", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SyncDebounce != 0 {
		t.Fatalf("expected debounce disabled, got %s", cfg.SyncDebounce)
	}
	if cfg.SyncSweepCron != "" {
		t.Fatalf("expected sweep cron disabled, got %q", cfg.SyncSweepCron)
	}
}

func TestLoad_AzureBlobRequiresAccountWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("AZURE_BLOB_ENABLED", "true")
	t.Setenv("AZURE_BLOB_ACCOUNT_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when AZURE_BLOB_ENABLED=true without AZURE_BLOB_ACCOUNT_URL")
	}

	t.Setenv("AZURE_BLOB_ACCOUNT_URL", "https://hoops.blob.core.windows.net")
	t.Setenv("AZURE_BLOB_SAS_TOKEN", "?sv=2023&sig=abc")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AzureBlobSASToken != "sv=2023&sig=abc" {
		t.Fatalf("expected leading ? stripped from SAS token, got %q", cfg.AzureBlobSASToken)
	}
	if cfg.AzureBlobContainer != "league-data" {
		t.Fatalf("unexpected default container %q", cfg.AzureBlobContainer)
	}
}

func TestLoad_CircuitConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("YAHOO_CIRCUIT_ENABLED", "false")
	t.Setenv("YAHOO_CIRCUIT_FAILURE_COUNT", "9")
	t.Setenv("YAHOO_CIRCUIT_OPEN_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := CircuitConfig{Enabled: false, FailureCount: 9, OpenTimeout: 45 * time.Second, HalfOpenMaxReq: 1}
	if cfg.YahooCircuit != want {
		t.Fatalf("unexpected yahoo circuit: %+v", cfg.YahooCircuit)
	}

	t.Setenv("ANUBIS_CIRCUIT_HALF_OPEN_MAX_REQ", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for ANUBIS_CIRCUIT_HALF_OPEN_MAX_REQ=0")
	}
}

func TestLoad_RedisDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("SYNC_GATE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	// getEnv falls back to the default address for blank values.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.RedisAddr)
	}

	t.Setenv("REDIS_DB", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative REDIS_DB")
	}
}

func TestParseTokenMap(t *testing.T) {
	got, err := parseTokenMap(" user-1:tok-a , user-2:tok-b ")
	if err != nil {
		t.Fatalf("parse token map: %v", err)
	}
	if len(got) != 2 || got["user-1"] != "tok-a" || got["user-2"] != "tok-b" {
		t.Fatalf("unexpected token map: %+v", got)
	}

	for _, raw := range []string{"user-1", "user-1:", ":tok"} {
		if _, err := parseTokenMap(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseUptraceDSNFromOTLPHeaders(t *testing.T) {
	got := parseUptraceDSNFromOTLPHeaders(`foo=bar, uptrace-dsn="https://token@api.uptrace.dev/1"`)
	if got != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if parseUptraceDSNFromOTLPHeaders("foo=bar") != "" {
		t.Fatalf("expected empty dsn without uptrace-dsn header")
	}
}
