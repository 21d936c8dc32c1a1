package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"orsi/internal/api"
)

func TestFetchCommandWritesFile(t *testing.T) {
	env := setupCLITestEnv(t)
	payload := bytes.Repeat([]byte("frame"), 1000)
	env.backend.SetContent(api.FolderProcessed, "done.mp4", payload)
	dest := filepath.Join(env.baseDir, "out")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"fetch", "processed", "done.mp4", "--output", dest}, env.configPath, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "Saved")
	got, err := os.ReadFile(filepath.Join(dest, "done.mp4"))
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("fetched content mismatch")
	}
}

func TestFetchCommandDefaultsToDownloadDir(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.SetContent(api.FolderUploaded, "raw.mp4", []byte("data"))

	if _, _, err := runCLI(t, []string{"fetch", "uploaded", "raw.mp4"}, env.configPath, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.DownloadDir, "raw.mp4")); err != nil {
		t.Fatalf("expected file in download dir: %v", err)
	}

	if _, _, err := runCLI(t, []string{"fetch", "uploaded", "missing.mp4"}, env.configPath, ""); err == nil {
		t.Fatal("expected error for missing video")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.DownloadDir, "missing.mp4")); !os.IsNotExist(err) {
		t.Fatalf("failed fetch must not leave a file, stat err=%v", err)
	}
}

func TestPlayPrintsStreamURL(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"play", "processed", "my clip.mp4", "--print"}, env.configPath, "")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	requireContains(t, out, env.backend.URL()+"/videos/processed/my%20clip.mp4")
}

func TestDownloadTarget(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name   string
		output string
		want   string
	}{
		{name: "default", output: "", want: filepath.Join("/downloads", "a.mp4")},
		{name: "existing dir", output: dir, want: filepath.Join(dir, "a.mp4")},
		{name: "trailing separator", output: filepath.Join(dir, "new") + string(os.PathSeparator), want: filepath.Join(dir, "new", "a.mp4")},
		{name: "file", output: filepath.Join(dir, "renamed.mp4"), want: filepath.Join(dir, "renamed.mp4")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := downloadTarget("/downloads", tc.output, "a.mp4")
			if err != nil {
				t.Fatalf("downloadTarget: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
