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
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected dsn %q", cfg.UptraceDSN)
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

func TestLoad_BackendDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BackendBaseURL != "https://api.example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 10*time.Second || cfg.BackendMaxRetries != 1 || cfg.BackendFanoutWorkers != 8 {
		t.Fatalf("unexpected backend defaults %+v", cfg)
	}
	if !cfg.BackendCircuit.Enabled || cfg.BackendCircuit.FailureThreshold != 5 || cfg.BackendCircuit.HalfOpenMaxReq != 2 {
		t.Fatalf("unexpected circuit defaults %+v", cfg.BackendCircuit)
	}
}

func TestLoad_BackendValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	tests := map[string]string{
		"BACKEND_BASE_URL":              "not a url",
		"BACKEND_TIMEOUT":               "0s",
		"BACKEND_MAX_RETRIES":           "-1",
		"BACKEND_FANOUT_WORKERS":        "0",
		"BACKEND_CIRCUIT_FAILURE_COUNT": "zero",
		"BACKEND_RPS":                   "-2",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoad_CacheBackend(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("defaults to memory", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.CacheBackend != CacheBackendMemory || !cfg.CacheEnabled || cfg.CacheTTL != time.Minute {
			t.Fatalf("unexpected cache config %+v", cfg)
		}
	})

	t.Run("redis", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "Redis")
		t.Setenv("REDIS_ADDR", "cache:6379")
		t.Setenv("REDIS_DB", "3")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.CacheBackend != CacheBackendRedis || cfg.RedisAddr != "cache:6379" || cfg.RedisDB != 3 {
			t.Fatalf("unexpected redis config %+v", cfg)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "memcached")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown cache backend")
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "-1s")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for negative CACHE_TTL")
		}
	})
}

func TestLoad_ArchiveBackend(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("s3 requires bucket", func(t *testing.T) {
		t.Setenv("ARCHIVE_BACKEND", "s3")
		t.Setenv("S3_BUCKET", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error without S3_BUCKET")
		}
	})

	t.Run("s3 requires paired static credentials", func(t *testing.T) {
		t.Setenv("ARCHIVE_BACKEND", "s3")
		t.Setenv("S3_BUCKET", "stats-archive")
		t.Setenv("S3_ACCESS_KEY_ID", "AKIA")
		t.Setenv("S3_SECRET_ACCESS_KEY", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unpaired credentials")
		}
	})

	t.Run("s3 parses prefix", func(t *testing.T) {
		t.Setenv("ARCHIVE_BACKEND", "s3")
		t.Setenv("S3_BUCKET", "stats-archive")
		t.Setenv("S3_PREFIX", "/archive/raw/")
		t.Setenv("S3_FORCE_PATH_STYLE", "true")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.S3Prefix != "archive/raw" || !cfg.S3ForcePathStyle {
			t.Fatalf("unexpected s3 config %+v", cfg)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("ARCHIVE_BACKEND", "dynamo")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown archive backend")
		}
	})

	t.Run("invalid max open conns", func(t *testing.T) {
		t.Setenv("ARCHIVE_BACKEND", "postgres")
		t.Setenv("DB_MAX_OPEN_CONNS", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for DB_MAX_OPEN_CONNS=0")
		}
	})
}

func TestLoad_RateLimit(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.RateLimitEnabled || cfg.RateLimitRPS != 2.5 || cfg.RateLimitBurst != 4 {
		t.Fatalf("unexpected rate limit config %+v", cfg)
	}

	t.Setenv("RATE_LIMIT_BURST", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for RATE_LIMIT_BURST=0")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "192.0.2.1" {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "proxy.internal")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for a hostname in TRUSTED_PROXIES")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "videostats-gateway-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "videostats-gateway-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected CORS origins: %+v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_LogLevel(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}
