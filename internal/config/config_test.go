package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  base_url: https://example.com/waterqualitypdf
  user_agent: real-agent
  referer: https://example.com/water-quality
  timeout_seconds: 60
  delay_ms: 250
cache:
  dir: /tmp/pdfs
  min_viable_bytes: 2048
db:
  path: /tmp/water.db
headless:
  enabled: true
  nav_timeout_seconds: 20
  download_dir: /tmp/downloads
metrics:
  addr: ":9102"
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL != "https://example.com/waterqualitypdf" {
		t.Fatalf("expected base url override, got %s", cfg.Source.BaseURL)
	}
	if cfg.Source.UserAgent != "real-agent" || cfg.Source.DelayMs != 250 {
		t.Fatalf("expected source overrides to apply: %+v", cfg.Source)
	}
	if cfg.Cache.Dir != "/tmp/pdfs" || cfg.Cache.MinViableBytes != 2048 {
		t.Fatalf("expected cache overrides to apply: %+v", cfg.Cache)
	}
	if cfg.DB.Path != "/tmp/water.db" {
		t.Fatalf("expected db path override, got %s", cfg.DB.Path)
	}
	if !cfg.Headless.Enabled || cfg.Headless.NavTimeoutSec != 20 {
		t.Fatalf("expected headless overrides to apply: %+v", cfg.Headless)
	}
	if cfg.Metrics.Addr != ":9102" {
		t.Fatalf("expected metrics addr override, got %s", cfg.Metrics.Addr)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected logging.development false")
	}
	if got := cfg.SourceTimeout(); got != 60*time.Second {
		t.Fatalf("expected source timeout 60s, got %v", got)
	}
	if got := cfg.Delay(); got != 250*time.Millisecond {
		t.Fatalf("expected delay 250ms, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.MinViableBytes != 1000 {
		t.Fatalf("expected default min viable bytes 1000, got %d", cfg.Cache.MinViableBytes)
	}
	if cfg.Source.DelayMs != 600 {
		t.Fatalf("expected default delay 600ms, got %d", cfg.Source.DelayMs)
	}
	if !cfg.Headless.Enabled {
		t.Fatalf("expected headless enabled by default")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Source: SourceConfig{BaseURL: "https://example.com", TimeoutSeconds: 10},
		Cache:  CacheConfig{Dir: "pdfs"},
		DB:     DBConfig{Path: "water.db"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing base url",
			cfg: func() Config {
				c := base
				c.Source.BaseURL = ""
				return c
			}(),
			want: "source.base_url",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Source.TimeoutSeconds = 0
				return c
			}(),
			want: "source.timeout_seconds",
		},
		{
			name: "negative delay",
			cfg: func() Config {
				c := base
				c.Source.DelayMs = -1
				return c
			}(),
			want: "source.delay_ms",
		},
		{
			name: "missing cache dir",
			cfg: func() Config {
				c := base
				c.Cache.Dir = ""
				return c
			}(),
			want: "cache.dir",
		},
		{
			name: "missing db path",
			cfg: func() Config {
				c := base
				c.DB.Path = ""
				return c
			}(),
			want: "db.path",
		},
		{
			name: "headless missing nav timeout",
			cfg: func() Config {
				c := base
				c.Headless.Enabled = true
				c.Headless.NavTimeoutSec = 0
				return c
			}(),
			want: "headless.nav_timeout_seconds",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
