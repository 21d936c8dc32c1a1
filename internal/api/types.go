package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Folder names one of the two asset collections held by the backend.
type Folder string

const (
	FolderUploaded  Folder = "uploaded"
	FolderProcessed Folder = "processed"
)

// ParseFolder validates a folder tag supplied by a user or a command argument.
func ParseFolder(value string) (Folder, error) {
	switch Folder(strings.ToLower(strings.TrimSpace(value))) {
	case FolderUploaded:
		return FolderUploaded, nil
	case FolderProcessed:
		return FolderProcessed, nil
	default:
		return "", fmt.Errorf("unknown folder %q (expected %q or %q)", value, FolderUploaded, FolderProcessed)
	}
}

// VideoCollections is the canonical list payload returned by GET /videos.
type VideoCollections struct {
	Uploaded  []string `json:"uploaded"`
	Processed []string `json:"processed"`
}

// UnmarshalJSON accepts the object form and the legacy bare array form, which
// older backends returned for the uploaded folder only.
func (c *VideoCollections) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var uploaded []string
		if err := json.Unmarshal(trimmed, &uploaded); err != nil {
			return err
		}
		*c = VideoCollections{Uploaded: uploaded}
		return nil
	}
	type plain VideoCollections
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*c = VideoCollections(decoded)
	return nil
}

// Clone returns a deep copy so callers never share backing arrays with the owner.
func (c VideoCollections) Clone() VideoCollections {
	return VideoCollections{
		Uploaded:  cloneNames(c.Uploaded),
		Processed: cloneNames(c.Processed),
	}
}

// List returns the names held in the given folder.
func (c VideoCollections) List(folder Folder) []string {
	if folder == FolderProcessed {
		return c.Processed
	}
	return c.Uploaded
}

// Contains reports whether filename is listed in folder.
func (c VideoCollections) Contains(folder Folder, filename string) bool {
	for _, name := range c.List(folder) {
		if name == filename {
			return true
		}
	}
	return false
}

func cloneNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// JobStatus is the lifecycle state reported by the backend for a processing job.
// The zero value means no observation has been made yet.
type JobStatus string

const (
	JobUnknown    JobStatus = ""
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobNotFound   JobStatus = "not_found"
)

// ParseJobStatus normalizes a backend status string. Unrecognized values are
// kept verbatim so they can still be displayed.
func ParseJobStatus(value string) JobStatus {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return JobStatus(normalized)
}

// Terminal reports whether no further meaningful transition is expected.
// not_found is retryable and therefore not terminal.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// UnmarshalJSON normalizes casing and separators reported by the backend.
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseJobStatus(raw)
	return nil
}

func (s JobStatus) String() string {
	if s == JobUnknown {
		return "unknown"
	}
	return string(s)
}

// JobStatusResponse is returned by GET /videos/job-status/{filename}.
type JobStatusResponse struct {
	Status JobStatus `json:"status"`
}

// JobProgressResponse is returned by GET /videos/job-progress/{filename}.
type JobProgressResponse struct {
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
}

// UnmarshalJSON accepts fractional or string progress values, clamps them to
// 0..100 and truncates them to whole percentages.
func (r *JobProgressResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status   JobStatus       `json:"status"`
		Progress json.RawMessage `json:"progress"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Status = raw.Status
	r.Progress = 0
	progress := bytes.Trim(bytes.TrimSpace(raw.Progress), `"`)
	if len(progress) == 0 || string(progress) == "null" {
		return nil
	}
	value, err := strconv.ParseFloat(string(progress), 64)
	if err != nil {
		return fmt.Errorf("decode progress %s: %w", raw.Progress, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("decode progress %s: not a finite number", raw.Progress)
	}
	r.Progress = int(min(max(value, 0), 100))
	return nil
}

// Completed reports whether the response describes a finished job.
func (r JobProgressResponse) Completed() bool {
	switch r.Status {
	case JobCompleted:
		return true
	case JobFailed, JobNotFound:
		return false
	default:
		return r.Progress >= 100
	}
}

// UploadResponse is returned by POST /videos/upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

// ErrorResponse is the JSON error body emitted by the backend.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadJob tracks the processing job triggered by one uploaded file.
type UploadJob struct {
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
}

// ClampProgress bounds a reported percentage to 0..100.
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// RefreshReason names the mutation that caused a canonical refresh.
type RefreshReason string

const (
	ReasonInitial      RefreshReason = "initial"
	ReasonUpload       RefreshReason = "upload"
	ReasonDelete       RefreshReason = "delete"
	ReasonJobCompleted RefreshReason = "job_completed"
	ReasonManual       RefreshReason = "manual"
)

// EventKind classifies journal entries.
type EventKind string

const (
	EventUpload       EventKind = "upload"
	EventJobStatus    EventKind = "job_status"
	EventPromotion    EventKind = "promotion"
	EventDelete       EventKind = "delete"
	EventRefresh      EventKind = "refresh"
	EventAlert        EventKind = "alert"
	EventMetadataView EventKind = "metadata"
)

// Event is a single activity record produced by a console session.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	SessionID string    `json:"sessionId"`
	Kind      EventKind `json:"kind"`
	Folder    Folder    `json:"folder,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}
