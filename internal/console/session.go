package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"orsi/internal/api"
	"orsi/internal/config"
	"orsi/internal/coordinator"
	"orsi/internal/journal"
	"orsi/internal/logging"
	"orsi/internal/notifications"
	"orsi/internal/registry"
	"orsi/internal/services"
	"orsi/internal/services/backend"
	"orsi/internal/upload"
)

const journalTimeout = 5 * time.Second

// ErrLocked is returned when another session holds the watch lock.
var ErrLocked = errors.New("another orsi watch session is already running")

// Backend is the REST surface a session needs.
type Backend interface {
	registry.Backend
	upload.Uploader
}

// Options configures a Session.
type Options struct {
	// Journal records session activity when non-nil.
	Journal *journal.Store
	// Notifier receives video ready and job failed events; nil disables them.
	Notifier notifications.Service
	// Exclusive takes the watch lock on Start.
	Exclusive bool
	Logger    *slog.Logger
}

// Session is one running console.
type Session struct {
	cfg     *config.Config
	id      string
	logger  *slog.Logger
	journal *journal.Store

	notifier notifications.Service
	pushes   sync.WaitGroup

	coord   *coordinator.Coordinator
	reg     *registry.Registry
	uploads *upload.Controller

	exclusive bool
	lock      *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	changes chan struct{}
}

// New wires a session against backend.
func New(cfg *config.Config, client Backend, opts Options) (*Session, error) {
	if cfg == nil || client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "console", "", "config and backend are required", nil)
	}
	id := uuid.NewString()
	logger := logging.WithSession(opts.Logger, id)

	s := &Session{
		cfg:       cfg,
		id:        id,
		logger:    logging.NewComponentLogger(logger, "console"),
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		exclusive: opts.Exclusive,
		lock:      flock.New(cfg.LockPath()),
		changes:   make(chan struct{}, 1),
	}
	s.coord = coordinator.New(client, coordinator.Options{
		OnRefresh: s.handleRefresh,
		OnAlert:   s.handleAlert,
		Logger:    logger,
	})
	s.reg = registry.New(client, registry.Options{
		Source:        s.coord.Uploaded,
		OnRefresh:     s.coord.RequestRefresh,
		OnError:       s.coord.ReportError,
		Observer:      s,
		Interval:      cfg.PollInterval(),
		MaxConcurrent: cfg.Polling.MaxConcurrent,
		Logger:        logger,
	})
	s.uploads = upload.New(client, upload.Options{
		Jobs:      s.reg,
		OnSuccess: s.coord.RequestRefresh,
		OnError:   s.coord.ReportError,
		Logger:    logger,
	})
	return s, nil
}

// Open builds a session from configuration: backend client, notifier, and the
// journal when it is enabled. Close releases the journal.
func Open(cfg *config.Config, logger *slog.Logger, exclusive bool) (*Session, error) {
	client, err := backend.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}
	session, err := New(cfg, client, Options{
		Journal:   store,
		Notifier:  notifications.NewService(cfg),
		Exclusive: exclusive,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return session, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Coordinator returns the session's root coordinator.
func (s *Session) Coordinator() *coordinator.Coordinator { return s.coord }

// Registry returns the session's registry view.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Uploads returns the session's upload controller.
func (s *Session) Uploads() *upload.Controller { return s.uploads }

// Changes delivers a signal whenever visible state may have changed. Signals
// coalesce.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// Start mounts the coordinator and starts polling. A failed initial fetch is
// surfaced through the alert slot and does not stop the session.
func (s *Session) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("session already running")
	}
	if s.exclusive {
		if err := s.cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("ensure directories: %w", err)
		}
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrLocked
		}
	}

	runCtx, cancel := context.WithCancel(services.WithSessionID(ctx, s.id))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	_ = s.coord.Mount(runCtx)
	go func() {
		defer close(s.done)
		if err := s.reg.Run(runCtx); err != nil {
			s.logger.Warn("registry polling did not start", logging.Error(err))
		}
	}()
	s.logger.Info("console session started",
		logging.String("backend", s.cfg.API.BaseURL),
		logging.Duration("interval", s.cfg.PollInterval()),
		logging.Bool("exclusive", s.exclusive),
	)
	return nil
}

// Stop halts polling, waits for in-flight work and releases the lock.
func (s *Session) Stop() {
	if !s.running.Load() {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	<-s.done
	if s.exclusive {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release watch lock", logging.Error(err))
		}
	}
	s.running.Store(false)
	s.logger.Info("console session stopped")
}

// Close stops the session, waits for pending notifications and closes the
// journal.
func (s *Session) Close() error {
	s.Stop()
	s.reg.Close()
	s.pushes.Wait()
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// Upload selects path and submits it, returning the stored filename.
func (s *Session) Upload(ctx context.Context, path string) (string, error) {
	ctx = services.WithSessionID(ctx, s.id)
	if _, err := s.uploads.Select(path); err != nil {
		if !errors.Is(err, upload.ErrBusy) {
			s.coord.ReportError(err)
		}
		return "", err
	}
	s.notify()
	stored, err := s.uploads.Submit(ctx)
	if err != nil {
		return "", err
	}
	s.record(api.Event{Kind: api.EventUpload, Folder: api.FolderUploaded, Filename: stored, Detail: s.uploads.Notice()})
	s.notify()
	return stored, nil
}

// Delete removes folder/filename through the registry.
func (s *Session) Delete(ctx context.Context, folder api.Folder, filename string) error {
	err := s.reg.Delete(services.WithSessionID(ctx, s.id), folder, filename)
	s.notify()
	return err
}

// Metadata opens the detail view for filename.
func (s *Session) Metadata(ctx context.Context, filename string) (registry.Detail, error) {
	detail, err := s.reg.Metadata(services.WithSessionID(ctx, s.id), filename)
	s.record(api.Event{Kind: api.EventMetadataView, Filename: filename, Detail: fmt.Sprintf("available=%t", detail.Available)})
	s.notify()
	return detail, err
}

// Refresh re-fetches the canonical collections on demand.
func (s *Session) Refresh(ctx context.Context) error {
	return s.coord.Refresh(services.WithSessionID(ctx, s.id), api.ReasonManual)
}

// Dismiss clears the alert slot, the upload notice and the detail view.
func (s *Session) Dismiss() {
	s.coord.DismissAlert()
	s.uploads.DismissNotice()
	s.reg.CloseDetail()
	s.notify()
}

// JobChanged implements registry.Observer.
func (s *Session) JobChanged(prev, next api.UploadJob) {
	if prev.Status != next.Status {
		s.record(api.Event{
			Kind:     api.EventJobStatus,
			Folder:   api.FolderUploaded,
			Filename: next.Filename,
			Detail:   fmt.Sprintf("%s %d%%", next.Status.String(), next.Progress),
		})
		if next.Status == api.JobFailed {
			s.publish(notifications.EventJobFailed, next.Filename)
		}
	}
	s.notify()
}

// Promoted implements registry.Observer.
func (s *Session) Promoted(filename string) {
	s.record(api.Event{Kind: api.EventPromotion, Folder: api.FolderProcessed, Filename: filename})
	s.publish(notifications.EventVideoReady, filename)
	s.notify()
}

// Deleted implements registry.Observer.
func (s *Session) Deleted(folder api.Folder, filename string) {
	s.record(api.Event{Kind: api.EventDelete, Folder: folder, Filename: filename})
	s.notify()
}

func (s *Session) handleRefresh(reason api.RefreshReason, collections api.VideoCollections) {
	s.reg.SyncProcessed(collections.Processed)
	s.record(api.Event{
		Kind:   api.EventRefresh,
		Detail: fmt.Sprintf("%s uploaded=%d processed=%d", reason, len(collections.Uploaded), len(collections.Processed)),
	})
	s.notify()
}

func (s *Session) handleAlert(message string, err error) {
	s.record(api.Event{Kind: api.EventAlert, Detail: message + " (" + services.Kind(err) + ")"})
	s.notify()
}

func (s *Session) record(event api.Event) {
	if s.journal == nil {
		return
	}
	event.SessionID = s.id
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if _, err := s.journal.Record(ctx, event); err != nil {
		logging.WarnWithContext(s.logger, "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String("kind", string(event.Kind)),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
			logging.String(logging.FieldImpact, "activity history is incomplete"),
		)
	}
}

// publish delivers in the background; Close waits for it.
func (s *Session) publish(event notifications.Event, filename string) {
	if s.notifier == nil {
		return
	}
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout())
		defer cancel()
		if err := s.notifier.Publish(ctx, event, notifications.Payload{"filename": filename}); err != nil {
			logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
				logging.Error(err),
				logging.String("event", string(event)),
				logging.String(logging.FieldFilename, filename),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
