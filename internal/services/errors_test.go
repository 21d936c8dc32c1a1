package services_test

import (
	"errors"
	"strings"
	"testing"

	"orsi/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDeleteFailed, "delete", "processed/old.mp4", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDeleteFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"delete", "processed/old.mp4", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrNoFileSelected, "upload", "", "", nil)
	if !errors.Is(err, services.ErrNoFileSelected) {
		t.Fatalf("expected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "upload") {
		t.Fatalf("expected operation in message, got %q", err.Error())
	}
}

func TestUserMessageMapping(t *testing.T) {
	cases := map[error]string{
		services.ErrFetchFailed:          "Failed to fetch videos.",
		services.ErrUploadFailed:         "Failed to upload video.",
		services.ErrNoFileSelected:       "No file selected!",
		services.ErrDeleteFailed:         "Failed to delete video.",
		services.ErrMetadataFetchFailed:  "Failed to fetch metadata.",
		services.ErrJobStatusFetchFailed: "Failed to fetch job status.",
	}
	for marker, want := range cases {
		wrapped := services.Wrap(marker, "op", "subject", "", errors.New("io"))
		if got := services.UserMessage(wrapped); got != want {
			t.Fatalf("UserMessage(%v) = %q, want %q", marker, got, want)
		}
	}
	if got := services.UserMessage(errors.New(" plain ")); got != "plain" {
		t.Fatalf("expected fallback to error text, got %q", got)
	}
	if services.UserMessage(nil) != "" {
		t.Fatal("expected empty message for nil error")
	}
}

func TestKind(t *testing.T) {
	err := services.Wrap(services.ErrJobStatusFetchFailed, "poll", "clip.mp4", "", errors.New("timeout"))
	if got := services.Kind(err); got != "job status fetch failed" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(errors.New("x")); got != "unclassified" {
		t.Fatalf("unexpected kind %q", got)
	}
}
