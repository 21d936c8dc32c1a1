package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"orsi/internal/api"
	"orsi/internal/logging"
	"orsi/internal/services"
	"orsi/internal/textutil"
)

// ErrBusy is returned while a submission is in flight.
var ErrBusy = errors.New("upload in progress")

const triggeredPrefix = "triggered for "

// Uploader sends a file to the backend.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (api.UploadResponse, error)
}

// JobSource exposes the job observations made by the registry.
type JobSource interface {
	Job(filename string) (api.UploadJob, bool)
	Promoted(filename string) bool
}

// Selection describes the chosen local file.
type Selection struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	MIME string `json:"mime"`
}

// Options configures a Controller.
type Options struct {
	// Jobs supplies job state for the tracked filename; nil disables tracking.
	Jobs      JobSource
	OnSuccess func(ctx context.Context, reason api.RefreshReason)
	OnError   func(err error)
	Logger    *slog.Logger
}

// Controller owns the selection, upload and tracking lifecycle of one file.
type Controller struct {
	uploader  Uploader
	jobs      JobSource
	onSuccess func(context.Context, api.RefreshReason)
	onError   func(error)
	logger    *slog.Logger

	mu        sync.Mutex
	selected  *Selection
	uploading bool
	notice    string
	tracked   string
	last      api.UploadJob
	progress  func(Selection) io.Writer
}

// New constructs a controller around uploader.
func New(uploader Uploader, opts Options) *Controller {
	return &Controller{
		uploader:  uploader,
		jobs:      opts.Jobs,
		onSuccess: opts.OnSuccess,
		onError:   opts.OnError,
		logger:    logging.NewComponentLogger(opts.Logger, "upload"),
	}
}

// Select chooses path as the file to upload. Only regular files whose content
// is detected as video are accepted.
func (c *Controller) Select(path string) (Selection, error) {
	c.mu.Lock()
	busy := c.uploading
	c.mu.Unlock()
	if busy {
		return Selection{}, ErrBusy
	}

	sel, err := inspect(path)
	if err != nil {
		return Selection{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return Selection{}, ErrBusy
	}
	c.selected = &sel
	c.logger.Debug("file selected",
		logging.String(logging.FieldFilename, sel.Name),
		logging.String("mime", sel.MIME),
		logging.Int64("size_bytes", sel.Size),
	)
	return sel, nil
}

// Clear drops the current selection.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return ErrBusy
	}
	c.selected = nil
	return nil
}

// Submit uploads the selected file and returns the filename the backend
// stored it under.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.selected == nil {
		c.mu.Unlock()
		err := services.Wrap(services.ErrNoFileSelected, "upload", "", "", nil)
		c.report(err)
		return "", err
	}
	sel := *c.selected
	c.uploading = true
	c.notice = ""
	c.mu.Unlock()

	ctx = services.WithFilename(ctx, sel.Name)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("upload started",
		logging.String(logging.FieldEventType, "upload"),
		logging.String("size", humanize.Bytes(uint64(sel.Size))),
	)

	resp, err := c.send(ctx, sel)

	c.mu.Lock()
	c.uploading = false
	if err != nil {
		c.mu.Unlock()
		wrapped := services.Wrap(services.ErrUploadFailed, "upload", sel.Name, "", err)
		logging.WarnWithContext(logger, "upload failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the file stays selected for retry"),
		)
		c.report(wrapped)
		return "", wrapped
	}
	stored := storedName(resp, sel.Name)
	c.selected = nil
	c.tracked = stored
	c.last = api.UploadJob{Filename: stored}
	c.notice = fmt.Sprintf("Uploaded %s (%s); processing started.", stored, humanize.Bytes(uint64(sel.Size)))
	c.mu.Unlock()

	logger.Info("upload finished",
		logging.String("stored_as", stored),
		logging.String("message", resp.Message),
	)
	if c.onSuccess != nil {
		c.onSuccess(ctx, api.ReasonUpload)
	}
	return stored, nil
}

// SetProgress installs a hook returning a writer that receives the bytes of
// each submitted file as they are sent. A nil writer skips reporting.
func (c *Controller) SetProgress(fn func(Selection) io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

func (c *Controller) send(ctx context.Context, sel Selection) (api.UploadResponse, error) {
	file, err := os.Open(sel.Path)
	if err != nil {
		return api.UploadResponse{}, fmt.Errorf("open %s: %w", sel.Path, err)
	}
	defer file.Close()

	c.mu.Lock()
	progress := c.progress
	c.mu.Unlock()
	var body io.Reader = file
	if progress != nil {
		if w := progress(sel); w != nil {
			body = io.TeeReader(file, w)
		}
	}
	return c.uploader.Upload(ctx, sel.Name, body)
}

// Selected returns the current selection.
func (c *Controller) Selected() (Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return Selection{}, false
	}
	return *c.selected, true
}

// Uploading reports whether a submission is in flight.
func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Notice returns the transient success notice, if any.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// DismissNotice clears the success notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = ""
	c.mu.Unlock()
}

// Tracked returns the filename whose job is being followed.
func (c *Controller) Tracked() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracked, c.tracked != ""
}

// Job returns the tracked job with the latest observed status. Tracking ends
// once the job fails, completes and has been promoted, or disappears from the
// registry after having been observed.
func (c *Controller) Job() (api.UploadJob, bool) {
	c.mu.Lock()
	name, last := c.tracked, c.last
	c.mu.Unlock()
	if name == "" {
		return api.UploadJob{}, false
	}

	job := last
	done := false
	if c.jobs != nil {
		observed, ok := c.jobs.Job(name)
		switch {
		case ok:
			job = observed
			done = job.Status == api.JobFailed ||
				(job.Status == api.JobCompleted && c.jobs.Promoted(name))
		case last.Status != api.JobUnknown:
			done = true
		}
	}

	c.mu.Lock()
	if c.tracked == name {
		c.last = job
		if done {
			c.tracked = ""
			c.last = api.UploadJob{}
		}
	}
	c.mu.Unlock()
	return job, true
}

func (c *Controller) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func inspect(path string) (Selection, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Selection{}, services.Wrap(services.ErrInvalidInput, "select", "", "path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Selection{}, services.Wrap(services.ErrInvalidInput, "select", path, "", err)
	}
	if !info.Mode().IsRegular() {
		return Selection{}, services.Wrap(services.ErrInvalidInput, "select", path, "not a regular file", nil)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Selection{}, services.Wrap(services.ErrInvalidInput, "select", path, "detect type", err)
	}
	if !isVideo(mtype) {
		return Selection{}, services.Wrap(services.ErrInvalidInput, "select", path, "not a video file ("+mtype.String()+")", nil)
	}
	return Selection{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
		MIME: mtype.String(),
	}, nil
}

func isVideo(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}

// storedName resolves the backend's stored filename from an upload response.
func storedName(resp api.UploadResponse, local string) string {
	if name := strings.TrimSpace(resp.Filename); name != "" {
		return name
	}
	if idx := strings.LastIndex(resp.Message, triggeredPrefix); idx >= 0 {
		if name := strings.TrimSpace(resp.Message[idx+len(triggeredPrefix):]); name != "" {
			return name
		}
	}
	return textutil.StoredName(local)
}
