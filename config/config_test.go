package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/stevemurr/puzzle-level-server/config"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

// clearEnv blanks every variable Load reads; viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "LEVELS_DIR", "LEVEL_SCHEMA", "STORE_BACKEND", "DATA_DIR", "ALLOWED_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := config.Default()
	if *cfg != *want {
		t.Fatalf("expected defaults %+v, got %+v", want, cfg)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	body := "port: 7000\nlevels_dir: /srv/levels\nstore_backend: json\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)
	t.Setenv("LEVELS_DIR", "/env/levels")

	cfg, err := config.Load(newFlags(t, "--config", path, "--port", "9000"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("flag should win: expected port 9000, got %d", cfg.Port)
	}
	if cfg.LevelsDir != "/env/levels" {
		t.Fatalf("env should beat file: got %q", cfg.LevelsDir)
	}
	if cfg.StoreBackend != "json" {
		t.Fatalf("file should beat default: got %q", cfg.StoreBackend)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := config.Load(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8081 || cfg.StoreBackend != "sqlite" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port zero", func(c *config.Config) { c.Port = 0 }},
		{"port too large", func(c *config.Config) { c.Port = 70000 }},
		{"unknown backend", func(c *config.Config) { c.StoreBackend = "redis" }},
		{"empty levels dir", func(c *config.Config) { c.LevelsDir = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !config.IsConfigError(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
