package textutil

import "testing"

func TestStoredName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"clip.mp4", "clip.mp4"},
		{"My Holiday Clip.MP4", "my-holiday-clip.MP4"},
		{"__Weird__Name!!.mov", "weird--name.mov"},
		{"archive.tar.gz", "archive.tar.gz"},
		{"Ünïcode video.webm", "n-code-video.webm"},
		{"  spaced  .mkv", "spaced.mkv"},
		{"noext", "noext"},
		{"Report (final) v2.mp4", "report--final--v2.mp4"},
	}
	for _, tc := range cases {
		if got := StoredName(tc.in); got != tc.want {
			t.Errorf("StoredName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitExtHiddenFile(t *testing.T) {
	if base, ext := SplitExt(".hidden"); base != ".hidden" || ext != "" {
		t.Fatalf("unexpected split %q %q", base, ext)
	}
	if base, ext := SplitExt("..clip.mp4"); base != "..clip" || ext != ".mp4" {
		t.Fatalf("unexpected split %q %q", base, ext)
	}
}

func TestUniqueStoredName(t *testing.T) {
	existing := map[string]bool{"clip.mp4": true, "clip-1.mp4": true}
	got := UniqueStoredName("Clip.mp4", func(name string) bool { return existing[name] })
	if got != "clip-2.mp4" {
		t.Fatalf("expected clip-2.mp4, got %q", got)
	}
	if got := UniqueStoredName("fresh.mp4", nil); got != "fresh.mp4" {
		t.Fatalf("expected fresh.mp4, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c*d?"<>| `); got != "a-b-c-d" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if SanitizeFileName("   ") != "" {
		t.Fatal("expected empty result for blank input")
	}
}
