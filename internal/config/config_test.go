package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("NEARBY_DEFAULT_RADIUS_KM", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.Http.Port != ":8080" {
		t.Fatalf("unexpected port %q", cfg.Http.Port)
	}
	if cfg.Nearby.DefaultRadiusKM != 50 {
		t.Fatalf("expected default radius 50, got %v", cfg.Nearby.DefaultRadiusKM)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_KEY_PREFIX", "t:")
	t.Setenv("NEARBY_DEFAULT_RADIUS_KM", "12.5")
	t.Setenv("STATS_REPORT_INTERVAL", "15s")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != DriverRedis || cfg.Redis.Addr != "cache:6380" || cfg.Redis.KeyPrefix != "t:" {
		t.Fatalf("unexpected redis config %+v %+v", cfg.Store, cfg.Redis)
	}
	if cfg.Nearby.DefaultRadiusKM != 12.5 {
		t.Fatalf("unexpected radius %v", cfg.Nearby.DefaultRadiusKM)
	}
	if cfg.StatsEvery != 15*time.Second || !cfg.Telemetry.Enabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Http:       HttpConfig{Port: ":8080"},
			Store:      StoreConfig{Driver: DriverPostgres},
			Postgres:   PostgresConfig{Host: "db", Port: 5432},
			Redis:      RedisConfig{Addr: "r:6379"},
			Nearby:     NearbyConfig{DefaultRadiusKM: 50},
			RateLimit:  RateLimitConfig{RPS: 1, Burst: 1},
			StatsEvery: time.Minute,
		}
	}

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"bad_port", func(c *Config) { c.Http.Port = "8080" }, "HTTP_PORT"},
		{"unknown_driver", func(c *Config) { c.Store.Driver = "mongo" }, "STORE_DRIVER"},
		{"pg_without_host", func(c *Config) { c.Postgres.Host = "" }, "POSTGRES_HOST"},
		{"redis_without_addr", func(c *Config) { c.Store.Driver = DriverRedis; c.Redis.Addr = "" }, "REDIS_ADDR"},
		{"zero_radius", func(c *Config) { c.Nearby.DefaultRadiusKM = 0 }, "NEARBY_DEFAULT_RADIUS_KM"},
		{"zero_interval", func(c *Config) { c.StatsEvery = 0 }, "STATS_REPORT_INTERVAL"},
	}

	for _, c := range cases {
		cfg := base()
		c.mutate(&cfg)
		err := cfg.Validate()
		switch {
		case c.wantErr == "" && err != nil:
			t.Fatalf("%s: unexpected err %v", c.name, err)
		case c.wantErr != "" && (err == nil || !strings.Contains(err.Error(), c.wantErr)):
			t.Fatalf("%s: expected error mentioning %s, got %v", c.name, c.wantErr, err)
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	p := PostgresConfig{Host: "h", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=h port=5433 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
