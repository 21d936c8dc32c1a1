package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"orsi/internal/api"
	"orsi/internal/logging"
	"orsi/internal/metadata"
	"orsi/internal/services"
)

const (
	defaultInterval      = 3 * time.Second
	defaultMaxConcurrent = 4
)

// ErrRunning is returned when Run is called on a registry that is already running.
var ErrRunning = errors.New("registry already running")

// Backend is the slice of the REST client the registry depends on.
type Backend interface {
	ListVideos(ctx context.Context) (api.VideoCollections, error)
	JobProgress(ctx context.Context, filename string) (api.JobProgressResponse, error)
	Delete(ctx context.Context, folder api.Folder, filename string) error
	Metadata(ctx context.Context, filename string) (json.RawMessage, error)
}

// Observer receives state changes. Methods are called outside registry locks.
type Observer interface {
	JobChanged(prev, next api.UploadJob)
	Promoted(filename string)
	Deleted(folder api.Folder, filename string)
}

// Options configures a Registry.
type Options struct {
	// Source returns the current uploaded filenames; it is read once per tick.
	Source func() []string
	// OnRefresh asks the parent to re-fetch canonical collections.
	OnRefresh func(ctx context.Context, reason api.RefreshReason)
	// OnError reports classified failures to the parent's alert slot.
	OnError       func(err error)
	Observer      Observer
	Interval      time.Duration
	MaxConcurrent int
	Logger        *slog.Logger
}

// Detail is the metadata detail view. Available is false when the document
// could not be fetched.
type Detail struct {
	Filename  string           `json:"filename"`
	Available bool             `json:"available"`
	Document  json.RawMessage  `json:"document,omitempty"`
	Summary   metadata.Summary `json:"summary"`
}

type jobState struct {
	job       api.UploadJob
	seq       uint64
	updatedAt time.Time
}

// Registry tracks job state for uploaded filenames.
type Registry struct {
	backend       Backend
	source        func() []string
	onRefresh     func(context.Context, api.RefreshReason)
	onError       func(error)
	observer      Observer
	interval      time.Duration
	maxConcurrent int
	logger        *slog.Logger

	mu        sync.Mutex
	seq       uint64
	order     []string
	live      map[string]uint64
	jobs      map[string]*jobState
	promoted  map[string]struct{}
	processed []string
	loading   int
	detail    *Detail
	running   bool
	closed    bool
	inflight  sync.WaitGroup
}

// New constructs a registry. A nil Source polls nothing.
func New(backend Backend, opts Options) *Registry {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	source := opts.Source
	if source == nil {
		source = func() []string { return nil }
	}
	return &Registry{
		backend:       backend,
		source:        source,
		onRefresh:     opts.OnRefresh,
		onError:       opts.OnError,
		observer:      opts.Observer,
		interval:      interval,
		maxConcurrent: maxConcurrent,
		logger:        logging.NewComponentLogger(opts.Logger, "registry"),
		live:          make(map[string]uint64),
		jobs:          make(map[string]*jobState),
		promoted:      make(map[string]struct{}),
	}
}

// Run polls until ctx ends. The first tick fires immediately. On return every
// in-flight tick has settled and later callbacks are dropped.
func (r *Registry) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.closed {
		r.mu.Unlock()
		return ErrRunning
	}
	r.running = true
	r.mu.Unlock()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.shutdown()

	r.logger.Debug("registry polling started", logging.Duration("interval", r.interval))
	r.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.dispatch(ctx)
		}
	}
}

// PollOnce runs a single tick synchronously.
func (r *Registry) PollOnce(ctx context.Context) {
	seq, names, ok := r.beginTick()
	if !ok {
		return
	}
	defer r.inflight.Done()
	r.tick(ctx, seq, names)
}

// Close drops all later callbacks and waits for in-flight work.
func (r *Registry) Close() {
	r.shutdown()
}

func (r *Registry) shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.inflight.Wait()
	r.logger.Debug("registry polling stopped")
}

func (r *Registry) dispatch(ctx context.Context) {
	seq, names, ok := r.beginTick()
	if !ok {
		return
	}
	go func() {
		defer r.inflight.Done()
		r.tick(ctx, seq, names)
	}()
}

// beginTick advances the sequence, recomputes the poll set and prunes state
// for filenames that left it. The caller owns one inflight slot when ok.
func (r *Registry) beginTick() (uint64, []string, bool) {
	names := uniqueNames(r.source())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, nil, false
	}
	r.seq++
	seq := r.seq

	live := make(map[string]uint64, len(names))
	for _, name := range names {
		if since, ok := r.live[name]; ok {
			live[name] = since
		} else {
			live[name] = seq
		}
	}
	for name := range r.live {
		if _, ok := live[name]; !ok {
			delete(r.jobs, name)
			delete(r.promoted, name)
			r.logger.Debug("stopped polling", logging.String(logging.FieldFilename, name))
		}
	}
	r.live = live
	r.order = names
	r.inflight.Add(1)
	return seq, names, true
}

func (r *Registry) tick(ctx context.Context, seq uint64, names []string) {
	if len(names) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(r.maxConcurrent)
	for _, name := range names {
		g.Go(func() error {
			reqCtx := services.WithFilename(ctx, name)
			resp, err := r.backend.JobProgress(reqCtx, name)
			r.apply(reqCtx, seq, name, resp, err)
			return nil
		})
	}
	_ = g.Wait()
}

// observing reports whether a tick result for name should still be handled.
func (r *Registry) observing(ctx context.Context, seq uint64, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observingLocked(ctx, seq, name)
}

func (r *Registry) observingLocked(ctx context.Context, seq uint64, name string) bool {
	if r.closed || ctx.Err() != nil {
		return false
	}
	since, live := r.live[name]
	return live && seq >= since
}

func (r *Registry) apply(ctx context.Context, seq uint64, name string, resp api.JobProgressResponse, err error) {
	if err != nil {
		if !r.observing(ctx, seq, name) {
			return
		}
		wrapped := services.Wrap(services.ErrJobStatusFetchFailed, "job progress", name, "", err)
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "job progress request failed", "job_poll_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status stays at the last observation until the next tick"),
		)
		r.report(wrapped)
		return
	}

	r.mu.Lock()
	if !r.observingLocked(ctx, seq, name) {
		r.mu.Unlock()
		return
	}
	state, ok := r.jobs[name]
	if !ok {
		state = &jobState{job: api.UploadJob{Filename: name}}
		r.jobs[name] = state
	}
	if seq <= state.seq {
		r.mu.Unlock()
		r.logger.Debug("discarded stale observation",
			logging.String(logging.FieldFilename, name),
			logging.Int64("tick", int64(seq)),
			logging.Int64("applied_tick", int64(state.seq)),
		)
		return
	}
	prev := state.job
	next := api.UploadJob{Filename: name, Status: resp.Status, Progress: api.ClampProgress(resp.Progress)}
	completed := resp.Completed()
	if completed {
		next.Status = api.JobCompleted
		next.Progress = 100
	}
	state.job = next
	state.seq = seq
	state.updatedAt = time.Now()

	fire := false
	if completed {
		if _, done := r.promoted[name]; !done {
			r.promoted[name] = struct{}{}
			fire = true
		}
	}
	observer := r.observer
	r.mu.Unlock()

	if prev.Status != next.Status || prev.Progress != next.Progress {
		if prev.Status != next.Status {
			r.logger.Info("job status changed",
				logging.String(logging.FieldFilename, name),
				logging.String("from", prev.Status.String()),
				logging.String("status", next.Status.String()),
				logging.Int("progress", next.Progress),
			)
		}
		if observer != nil {
			observer.JobChanged(prev, next)
		}
	}
	if fire {
		r.promote(ctx, name)
	}
}

// promote re-fetches the processed list and asks the parent to refresh. It
// runs at most once per filename lifecycle.
func (r *Registry) promote(ctx context.Context, name string) {
	r.logger.Info("job completed; promoting",
		logging.String(logging.FieldFilename, name),
		logging.String(logging.FieldEventType, "promotion"),
	)
	r.reloadProcessed(ctx, name)
	if observer := r.observer; observer != nil && !r.isClosed() {
		observer.Promoted(name)
	}
	r.refresh(ctx, api.ReasonJobCompleted)
}

// reloadProcessed refreshes the local processed cache from GET /videos. The
// cache is left unchanged when the request fails.
func (r *Registry) reloadProcessed(ctx context.Context, subject string) {
	r.mu.Lock()
	r.loading++
	r.mu.Unlock()

	collections, err := r.backend.ListVideos(ctx)

	r.mu.Lock()
	if err == nil && !r.closed {
		r.processed = slices.Clone(collections.Processed)
		if r.processed == nil {
			r.processed = []string{}
		}
	}
	r.loading--
	r.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		r.report(services.Wrap(services.ErrFetchFailed, "refresh processed", subject, "", err))
	}
}

// Delete removes filename from folder on the backend. On success the parent is
// refreshed and, for processed videos, the local cache is re-fetched. On
// failure nothing local changes.
func (r *Registry) Delete(ctx context.Context, folder api.Folder, filename string) error {
	ctx = services.WithFolder(services.WithFilename(ctx, filename), string(folder))
	parsed, err := api.ParseFolder(string(folder))
	if err != nil {
		wrapped := services.Wrap(services.ErrDeleteFailed, "delete", filename, "", services.Wrap(services.ErrInvalidInput, "folder", string(folder), "", err))
		r.report(wrapped)
		return wrapped
	}
	if err := r.backend.Delete(ctx, parsed, filename); err != nil {
		wrapped := services.Wrap(services.ErrDeleteFailed, "delete", string(parsed)+"/"+filename, "", err)
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "delete failed", "delete_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the video remains listed"),
		)
		r.report(wrapped)
		return wrapped
	}
	logging.WithContext(ctx, r.logger).Info("video deleted", logging.String(logging.FieldEventType, "delete"))
	if observer := r.observer; observer != nil && !r.isClosed() {
		observer.Deleted(parsed, filename)
	}
	r.refresh(ctx, api.ReasonDelete)
	if parsed == api.FolderProcessed {
		r.reloadProcessed(ctx, filename)
	}
	return nil
}

// Metadata fetches the metadata document for filename and opens the detail
// view. A failed fetch opens the view in its "no metadata" state.
func (r *Registry) Metadata(ctx context.Context, filename string) (Detail, error) {
	ctx = services.WithFilename(ctx, filename)
	doc, err := r.backend.Metadata(ctx, filename)
	detail := Detail{Filename: filename}
	if err == nil {
		detail.Available = true
		detail.Document = doc
		detail.Summary = metadata.Summarize(doc)
	}

	r.mu.Lock()
	if !r.closed {
		stored := detail
		r.detail = &stored
	}
	r.mu.Unlock()

	if err != nil {
		wrapped := services.Wrap(services.ErrMetadataFetchFailed, "metadata", filename, "", err)
		r.report(wrapped)
		return detail, wrapped
	}
	return detail, nil
}

// Detail returns the open detail view, if any.
func (r *Registry) Detail() (Detail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detail == nil {
		return Detail{}, false
	}
	return *r.detail, true
}

// CloseDetail dismisses the detail view.
func (r *Registry) CloseDetail() {
	r.mu.Lock()
	r.detail = nil
	r.mu.Unlock()
}

// SyncProcessed replaces the local processed cache with a canonical list.
func (r *Registry) SyncProcessed(processed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.processed = slices.Clone(processed)
	if r.processed == nil {
		r.processed = []string{}
	}
}

// Processed returns a copy of the local processed cache.
func (r *Registry) Processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.processed)
	if out == nil {
		out = []string{}
	}
	return out
}

// LoadingProcessed reports whether a processed re-fetch is in flight.
func (r *Registry) LoadingProcessed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading > 0
}

// Job returns the latest observation for filename.
func (r *Registry) Job(filename string) (api.UploadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.jobs[filename]
	if !ok {
		return api.UploadJob{}, false
	}
	return state.job, true
}

// Jobs returns one entry per polled filename in poll order. Filenames without
// an observation yet have the unknown status.
func (r *Registry) Jobs() []api.UploadJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.UploadJob, 0, len(r.order))
	for _, name := range r.order {
		if state, ok := r.jobs[name]; ok {
			out = append(out, state.job)
			continue
		}
		out = append(out, api.UploadJob{Filename: name})
	}
	return out
}

// Promoted reports whether the promotion side effect fired for filename in
// its current lifecycle.
func (r *Registry) Promoted(filename string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.promoted[filename]
	return ok
}

// Polling returns the current poll set.
func (r *Registry) Polling() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

func (r *Registry) refresh(ctx context.Context, reason api.RefreshReason) {
	if r.onRefresh == nil || r.isClosed() {
		return
	}
	r.onRefresh(ctx, reason)
}

func (r *Registry) report(err error) {
	if r.onError == nil || r.isClosed() {
		return
	}
	r.onError(err)
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
