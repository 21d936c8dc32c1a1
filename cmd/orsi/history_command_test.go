package main

import (
	"encoding/json"
	"testing"

	"orsi/internal/api"
	"orsi/internal/testsupport"
)

func TestHistoryRecordsConsoleActivity(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed(nil, []string{"old.mp4"})
	path := testsupport.WriteVideoFile(t, env.baseDir, "clip.mp4", 512)

	if _, _, err := runCLI(t, []string{"upload", path}, env.configPath, ""); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, _, err := runCLI(t, []string{"delete", "processed", "old.mp4"}, env.configPath, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "uploaded/clip.mp4")
	requireContains(t, out, "processed/old.mp4")

	out, _, err = runCLI(t, []string{"history", "--kind", "delete", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history json: %v", err)
	}
	var events []api.Event
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode events: %v\n%s", err, out)
	}
	if len(events) != 1 || events[0].Kind != api.EventDelete || events[0].Filename != "old.mp4" {
		t.Fatalf("unexpected events %+v", events)
	}

	out, _, err = runCLI(t, []string{"history", "--file", "nothing.mp4"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history filter: %v", err)
	}
	requireContains(t, out, "No activity recorded.")
}

func TestHistorySessionsAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"list"}, env.configPath, ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, _, err := runCLI(t, []string{"list"}, env.configPath, ""); err != nil {
		t.Fatalf("list: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--sessions", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history sessions: %v", err)
	}
	var sessions []map[string]any
	if err := json.Unmarshal([]byte(out), &sessions); err != nil {
		t.Fatalf("decode sessions: %v\n%s", err, out)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	out, _, err = runCLI(t, []string{"history", "--prune", "1h"}, env.configPath, "")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 0 events")
}

func TestShortSessionID(t *testing.T) {
	if got := shortSessionID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("got %q", got)
	}
	if got := shortSessionID("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
