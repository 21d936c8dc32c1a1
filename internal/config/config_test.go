package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"orsi/internal/config"
)

func clearAPIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ORSI_API_URL", "")
	t.Setenv("REACT_APP_API_URL", "")
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearAPIEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "orsi", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "orsi") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if !cfg.Journal.Enabled {
		t.Fatal("expected journal enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestLoadUsesEnvironmentURL(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REACT_APP_API_URL", "http://legacy:5000")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://legacy:5000" {
		t.Fatalf("expected legacy env url, got %q", cfg.API.BaseURL)
	}

	t.Setenv("ORSI_API_URL", "http://primary:8080/")
	cfg, _, _, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://primary:8080" {
		t.Fatalf("expected primary env url, got %q", cfg.API.BaseURL)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("ORSI_API_URL", "http://ignored:1")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "orsi.toml")

	type payload struct {
		API struct {
			BaseURL string `toml:"base_url"`
		} `toml:"api"`
		Polling struct {
			Interval      int `toml:"interval"`
			MaxConcurrent int `toml:"max_concurrent"`
		} `toml:"polling"`
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.API.BaseURL = "https://videos.example.com/api"
	custom.Polling.Interval = 5
	custom.Polling.MaxConcurrent = 2
	custom.Paths.StateDir = filepath.Join(tempDir, "state")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.API.BaseURL != "https://videos.example.com/api" {
		t.Fatalf("file url should win over env, got %q", cfg.API.BaseURL)
	}
	if cfg.Polling.Interval != 5 || cfg.Polling.MaxConcurrent != 2 {
		t.Fatalf("unexpected polling %+v", cfg.Polling)
	}
	if cfg.JournalPath() != filepath.Join(tempDir, "state", "journal.db") {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearAPIEnv(t)
	cases := map[string]string{
		"interval too small": "[polling]\ninterval = -1\n",
		"interval too large": "[polling]\ninterval = 120\n",
		"bad scheme":         "[api]\nbase_url = \"ftp://host\"\n",
		"bad level":          "[logging]\nlevel = \"chatty\"\n",
		"unknown key":        "[api]\nbase_uri = \"http://x\"\n",
		"negative timeout":   "[api]\nrequest_timeout = -5\n",
		"bad ntfy topic":     "[notifications]\nntfy_topic = \"my-topic\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "orsi.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestNormalizeLoggingFallsBackToConsole(t *testing.T) {
	clearAPIEnv(t)
	path := filepath.Join(t.TempDir(), "orsi.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"XML\"\nlevel = \" DEBUG \"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestCreateSampleLoadsAndRefusesOverwrite(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Polling.Interval != 3 {
		t.Fatalf("unexpected sample interval %d", cfg.Polling.Interval)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected CreateSample to refuse overwriting")
	}
}

func TestEncodeRoundTripsSections(t *testing.T) {
	cfg := config.Default()
	out, err := config.Encode(&cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, section := range []string{"[api]", "[polling]", "[paths]", "[logging]", "[journal]"} {
		if !strings.Contains(out, section) {
			t.Fatalf("expected %s in encoded config:\n%s", section, out)
		}
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "videos") {
		t.Fatalf("unexpected expansion %q", got)
	}
}
