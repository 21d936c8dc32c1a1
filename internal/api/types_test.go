package api

import (
	"encoding/json"
	"testing"
)

func TestVideoCollectionsDecodesObjectAndLegacyArray(t *testing.T) {
	var obj VideoCollections
	if err := json.Unmarshal([]byte(`{"uploaded":["a.mp4"],"processed":["b.mp4"]}`), &obj); err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if len(obj.Uploaded) != 1 || obj.Uploaded[0] != "a.mp4" || len(obj.Processed) != 1 || obj.Processed[0] != "b.mp4" {
		t.Fatalf("unexpected collections: %+v", obj)
	}

	var legacy VideoCollections
	if err := json.Unmarshal([]byte(` ["x.mp4","y.mp4"]`), &legacy); err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if len(legacy.Uploaded) != 2 || len(legacy.Processed) != 0 {
		t.Fatalf("unexpected legacy collections: %+v", legacy)
	}
}

func TestVideoCollectionsCloneIsIndependent(t *testing.T) {
	orig := VideoCollections{Uploaded: []string{"a.mp4"}}
	clone := orig.Clone()
	clone.Uploaded[0] = "changed.mp4"
	if orig.Uploaded[0] != "a.mp4" {
		t.Fatal("clone shares backing array with original")
	}
	if clone.Processed == nil {
		t.Fatal("expected nil list to clone as empty slice")
	}
}

func TestParseFolder(t *testing.T) {
	if f, err := ParseFolder(" Processed "); err != nil || f != FolderProcessed {
		t.Fatalf("ParseFolder processed: %q %v", f, err)
	}
	if _, err := ParseFolder("metadata"); err == nil {
		t.Fatal("expected error for unknown folder")
	}
}

func TestJobProgressCompleted(t *testing.T) {
	cases := []struct {
		resp JobProgressResponse
		want bool
	}{
		{JobProgressResponse{Status: JobCompleted}, true},
		{JobProgressResponse{Status: JobProcessing, Progress: 40}, false},
		{JobProgressResponse{Status: JobProcessing, Progress: 100}, true},
		{JobProgressResponse{Status: JobFailed, Progress: 100}, false},
		{JobProgressResponse{Status: JobNotFound, Progress: 100}, false},
	}
	for _, tc := range cases {
		if got := tc.resp.Completed(); got != tc.want {
			t.Fatalf("Completed(%+v) = %v, want %v", tc.resp, got, tc.want)
		}
	}
}

func TestParseJobStatus(t *testing.T) {
	if got := ParseJobStatus(" Not-Found "); got != JobNotFound {
		t.Fatalf("expected not_found, got %q", got)
	}
	if JobNotFound.Terminal() {
		t.Fatal("not_found must not be terminal")
	}
	if !JobFailed.Terminal() || !JobCompleted.Terminal() {
		t.Fatal("failed and completed are terminal")
	}
}

func TestJobStatusDecodesNormalized(t *testing.T) {
	var resp JobProgressResponse
	if err := json.Unmarshal([]byte(`{"status":"Completed","progress":100}`), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != JobCompleted {
		t.Fatalf("expected completed, got %q", resp.Status)
	}
}

func TestJobProgressDecodesFractionalProgress(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{`{"status":"processing","progress":42.7}`, 42},
		{`{"status":"processing","progress":"55"}`, 55},
		{`{"status":"processing"}`, 0},
		{`{"status":"processing","progress":null}`, 0},
		{`{"status":"Completed","progress":100.0}`, 100},
		{`{"status":"processing","progress":1e300}`, 100},
		{`{"status":"processing","progress":"-1e300"}`, 0},
		{`{"status":"processing","progress":-3.5}`, 0},
	}
	for _, tc := range cases {
		input, want := tc.input, tc.want
		var resp JobProgressResponse
		if err := json.Unmarshal([]byte(input), &resp); err != nil {
			t.Fatalf("decode %s: %v", input, err)
		}
		if resp.Progress != want {
			t.Fatalf("decode %s: progress %d, want %d", input, resp.Progress, want)
		}
	}
	for _, input := range []string{`"lots"`, `"NaN"`, `"Inf"`, `"-Infinity"`} {
		var resp JobProgressResponse
		if err := json.Unmarshal([]byte(`{"status":"processing","progress":`+input+`}`), &resp); err == nil {
			t.Fatalf("expected error for progress %s", input)
		}
	}
}
