package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"orsi/internal/api"
	"orsi/internal/textutil"
)

// Routes understood by FakeBackend failure injection and request counters.
const (
	RouteList        = "list"
	RouteUpload      = "upload"
	RouteJobStatus   = "job-status"
	RouteJobProgress = "job-progress"
	RouteDelete      = "delete"
	RouteMetadata    = "metadata"
	RouteStream      = "stream"
)

// FakeBackend is an in-memory implementation of the video backend REST API.
// Job progress is scripted per filename: each poll consumes the next scripted
// response and the final one repeats.
type FakeBackend struct {
	server *httptest.Server

	mu        sync.Mutex
	uploaded  []string
	processed []string
	content   map[string][]byte
	jobs      map[string][]api.JobProgressResponse
	metadata  map[string]json.RawMessage
	failures  map[string]int
	counts    map[string]int
	requests  map[string][]string
	promote   bool
	hold      chan struct{}
}

// NewFakeBackend starts a fake backend that is shut down with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		content:  make(map[string][]byte),
		jobs:     make(map[string][]api.JobProgressResponse),
		metadata: make(map[string]json.RawMessage),
		failures: make(map[string]int),
		counts:   make(map[string]int),
		requests: make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /videos", fb.handleList)
	mux.HandleFunc("POST /videos/upload", fb.handleUpload)
	mux.HandleFunc("GET /videos/job-status/{filename}", fb.handleJobStatus)
	mux.HandleFunc("GET /videos/job-progress/{filename}", fb.handleJobProgress)
	mux.HandleFunc("GET /videos/metadata/{document}", fb.handleMetadata)
	mux.HandleFunc("DELETE /videos/{folder}/{filename}", fb.handleDelete)
	mux.HandleFunc("GET /videos/{folder}/{filename}", fb.handleStream)

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string {
	return fb.server.URL
}

// Seed replaces both collections.
func (fb *FakeBackend) Seed(uploaded, processed []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.uploaded = slices.Clone(uploaded)
	fb.processed = slices.Clone(processed)
}

// Collections returns a snapshot of the backend's canonical state.
func (fb *FakeBackend) Collections() api.VideoCollections {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return api.VideoCollections{Uploaded: fb.uploaded, Processed: fb.processed}.Clone()
}

// SetContent stores the bytes served for folder/filename.
func (fb *FakeBackend) SetContent(folder api.Folder, filename string, data []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.content[string(folder)+"/"+filename] = slices.Clone(data)
}

// ScriptJob sets the job progress responses for filename.
func (fb *FakeBackend) ScriptJob(filename string, responses ...api.JobProgressResponse) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.jobs[filename] = slices.Clone(responses)
}

// SetMetadata stores the metadata document for filename.
func (fb *FakeBackend) SetMetadata(filename string, doc string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.metadata[filename] = json.RawMessage(doc)
}

// PromoteOnCompletion moves a file from uploaded to processed the first time
// its job reports completed, mirroring the backend's detection job.
func (fb *FakeBackend) PromoteOnCompletion(enabled bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.promote = enabled
}

// Promote moves filename from uploaded to processed.
func (fb *FakeBackend) Promote(filename string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.promoteLocked(filename)
}

// HoldUploads makes upload requests wait after reading the body until the
// returned release func is called or the client goes away.
func (fb *FakeBackend) HoldUploads(t testing.TB) (release func()) {
	hold := make(chan struct{})
	var once sync.Once
	release = func() { once.Do(func() { close(hold) }) }
	t.Cleanup(release)
	fb.mu.Lock()
	fb.hold = hold
	fb.mu.Unlock()
	return release
}

// Fail makes the next n requests to route answer with HTTP 500. A negative n
// fails until Fail is called again with zero.
func (fb *FakeBackend) Fail(route string, n int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[route] = n
}

// Count returns how many requests route has received.
func (fb *FakeBackend) Count(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.counts[route]
}

// Requests returns the filenames requested on route, in order.
func (fb *FakeBackend) Requests(route string) []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return slices.Clone(fb.requests[route])
}

// begin counts the request and reports whether an injected failure was served.
func (fb *FakeBackend) begin(w http.ResponseWriter, route, subject string) bool {
	fb.mu.Lock()
	fb.counts[route]++
	if subject != "" {
		fb.requests[route] = append(fb.requests[route], subject)
	}
	remaining := fb.failures[route]
	if remaining > 0 {
		fb.failures[route] = remaining - 1
	}
	fb.mu.Unlock()

	if remaining != 0 {
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "injected " + route + " failure"})
		return true
	}
	return false
}

func (fb *FakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	if fb.begin(w, RouteList, "") {
		return
	}
	writeJSON(w, http.StatusOK, fb.Collections())
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("video")
	if err != nil {
		fb.begin(w, RouteUpload, "")
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "No file part"})
		return
	}
	defer file.Close()
	if fb.begin(w, RouteUpload, header.Filename) {
		return
	}
	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "No selected file"})
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	fb.mu.Lock()
	hold := fb.hold
	fb.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	fb.mu.Lock()
	stored := textutil.UniqueStoredName(header.Filename, func(name string) bool {
		return slices.Contains(fb.uploaded, name)
	})
	fb.uploaded = append(fb.uploaded, stored)
	fb.content[string(api.FolderUploaded)+"/"+stored] = data
	if _, scripted := fb.jobs[stored]; !scripted {
		fb.jobs[stored] = []api.JobProgressResponse{{Status: api.JobProcessing}}
	}
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, api.UploadResponse{Message: "File uploaded and AI job triggered for " + stored})
}

func (fb *FakeBackend) nextJob(filename string) (api.JobProgressResponse, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	script, ok := fb.jobs[filename]
	if !ok || len(script) == 0 {
		return api.JobProgressResponse{}, false
	}
	resp := script[0]
	if len(script) > 1 {
		fb.jobs[filename] = script[1:]
	}
	if resp.Status == api.JobCompleted && fb.promote {
		fb.promoteLocked(filename)
	}
	return resp, true
}

func (fb *FakeBackend) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if fb.begin(w, RouteJobStatus, filename) {
		return
	}
	resp, ok := fb.nextJob(filename)
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, api.JobStatusResponse{Status: resp.Status})
}

func (fb *FakeBackend) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if fb.begin(w, RouteJobProgress, filename) {
		return
	}
	resp, ok := fb.nextJob(filename)
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (fb *FakeBackend) handleMetadata(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimSuffix(r.PathValue("document"), ".json")
	if fb.begin(w, RouteMetadata, filename) {
		return
	}
	fb.mu.Lock()
	doc, ok := fb.metadata[filename]
	fb.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "File not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

func (fb *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	folder, filename := r.PathValue("folder"), r.PathValue("filename")
	if fb.begin(w, RouteDelete, folder+"/"+filename) {
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var list *[]string
	switch api.Folder(folder) {
	case api.FolderUploaded:
		list = &fb.uploaded
	case api.FolderProcessed:
		list = &fb.processed
	default:
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid folder"})
		return
	}
	idx := slices.Index(*list, filename)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "File not found"})
		return
	}
	*list = slices.Delete(*list, idx, idx+1)
	delete(fb.content, folder+"/"+filename)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("File %s deleted successfully", filename)})
}

func (fb *FakeBackend) handleStream(w http.ResponseWriter, r *http.Request) {
	folder, filename := r.PathValue("folder"), r.PathValue("filename")
	if fb.begin(w, RouteStream, folder+"/"+filename) {
		return
	}
	fb.mu.Lock()
	data, ok := fb.content[folder+"/"+filename]
	fb.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "File not found"})
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func (fb *FakeBackend) promoteLocked(filename string) {
	idx := slices.Index(fb.uploaded, filename)
	if idx < 0 {
		return
	}
	fb.uploaded = slices.Delete(fb.uploaded, idx, idx+1)
	if !slices.Contains(fb.processed, filename) {
		fb.processed = append(fb.processed, filename)
	}
	if data, ok := fb.content[string(api.FolderUploaded)+"/"+filename]; ok {
		fb.content[string(api.FolderProcessed)+"/"+filename] = data
		delete(fb.content, string(api.FolderUploaded)+"/"+filename)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
