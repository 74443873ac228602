package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if cfg.Merge.Workers != 2 {
		t.Fatalf("expected default workers 2, got %d", cfg.Merge.Workers)
	}
	if cfg.Merge.OutputFormat != "mp3" {
		t.Fatalf("expected default output format mp3, got %q", cfg.Merge.OutputFormat)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`upload_dir = "` + filepath.Join(dir, "up") + `"`,
		`merged_dir = "` + filepath.Join(dir, "out") + `"`,
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[merge]",
		"workers = 3",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s (exists), got %s exists=%v", path, resolved, exists)
	}
	if cfg.Merge.Workers != 3 {
		t.Fatalf("expected workers 3, got %d", cfg.Merge.Workers)
	}
	if !filepath.IsAbs(cfg.Paths.UploadDir) {
		t.Fatalf("expected absolute upload dir, got %q", cfg.Paths.UploadDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Merge.Workers = 0 }},
		{"bad format", func(c *config.Config) { c.Merge.OutputFormat = "ogg" }},
		{"same dirs", func(c *config.Config) { c.Paths.MergedDir = c.Paths.UploadDir }},
		{"bad channels", func(c *config.Config) { c.Merge.Channels = 5 }},
		{"zero retention", func(c *config.Config) { c.Jobs.RetainTerminal = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[merge]") {
		t.Fatal("sample config missing [merge] section")
	}
}
