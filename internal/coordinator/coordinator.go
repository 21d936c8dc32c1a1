package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"orsi/internal/api"
	"orsi/internal/logging"
	"orsi/internal/services"
)

// Fetcher loads the canonical collections.
type Fetcher interface {
	ListVideos(ctx context.Context) (api.VideoCollections, error)
}

// Options configures a Coordinator.
type Options struct {
	// OnRefresh is called after collections were replaced.
	OnRefresh func(reason api.RefreshReason, collections api.VideoCollections)
	// OnAlert is called whenever the alert slot is overwritten.
	OnAlert func(message string, err error)
	Logger  *slog.Logger
}

// Coordinator owns VideoCollections and the alert slot.
type Coordinator struct {
	fetcher   Fetcher
	onRefresh func(api.RefreshReason, api.VideoCollections)
	onAlert   func(string, error)
	logger    *slog.Logger

	mu          sync.Mutex
	collections api.VideoCollections
	issued      uint64
	applied     uint64
	revision    uint64
	alert       string
}

// New constructs a coordinator with empty collections.
func New(fetcher Fetcher, opts Options) *Coordinator {
	return &Coordinator{
		fetcher:     fetcher,
		onRefresh:   opts.OnRefresh,
		onAlert:     opts.OnAlert,
		logger:      logging.NewComponentLogger(opts.Logger, "coordinator"),
		collections: api.VideoCollections{Uploaded: []string{}, Processed: []string{}},
	}
}

// Mount performs the initial fetch. A failure leaves the collections empty and
// raises an alert; it is not retried.
func (c *Coordinator) Mount(ctx context.Context) error {
	return c.Refresh(ctx, api.ReasonInitial)
}

// Refresh re-fetches the collections and replaces them atomically. A result
// that arrives after a newer refresh has already been applied is discarded.
func (c *Coordinator) Refresh(ctx context.Context, reason api.RefreshReason) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	collections, err := c.fetcher.ListVideos(ctx)

	c.mu.Lock()
	if seq <= c.applied {
		c.mu.Unlock()
		c.logger.Debug("discarded stale refresh",
			logging.String("reason", string(reason)),
			logging.Int64("sequence", int64(seq)),
		)
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wrapped := services.Wrap(services.ErrFetchFailed, "list videos", string(reason), "", err)
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "video list fetch failed", "fetch_failed",
			logging.Error(err),
			logging.String("reason", string(reason)),
		)
		c.ReportError(wrapped)
		return wrapped
	}
	c.applied = seq
	c.revision++
	c.collections = collections.Clone()
	snapshot := c.collections.Clone()
	c.mu.Unlock()

	c.logger.Debug("collections refreshed",
		logging.String("reason", string(reason)),
		logging.Int("uploaded", len(snapshot.Uploaded)),
		logging.Int("processed", len(snapshot.Processed)),
	)
	if c.onRefresh != nil {
		c.onRefresh(reason, snapshot)
	}
	return nil
}

// RequestRefresh adapts Refresh to the child callback signature; the error is
// already surfaced through the alert slot.
func (c *Coordinator) RequestRefresh(ctx context.Context, reason api.RefreshReason) {
	_ = c.Refresh(ctx, reason)
}

// ReportError overwrites the alert slot with the user message for err.
func (c *Coordinator) ReportError(err error) {
	if err == nil {
		return
	}
	message := services.UserMessage(err)
	c.mu.Lock()
	c.alert = message
	c.mu.Unlock()
	if c.onAlert != nil {
		c.onAlert(message, err)
	}
}

// DismissAlert clears the alert slot.
func (c *Coordinator) DismissAlert() {
	c.mu.Lock()
	c.alert = ""
	c.mu.Unlock()
}

// Alert returns the current alert message, if any.
func (c *Coordinator) Alert() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alert, c.alert != ""
}

// Collections returns a copy of the canonical collections.
func (c *Coordinator) Collections() api.VideoCollections {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collections.Clone()
}

// Uploaded returns a copy of the uploaded list; it is the registry's poll source.
func (c *Coordinator) Uploaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collections.Clone().Uploaded
}

// Revision counts applied refreshes.
func (c *Coordinator) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}
