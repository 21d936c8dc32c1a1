package coordinator_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"orsi/internal/api"
	"orsi/internal/coordinator"
	"orsi/internal/services"
	"orsi/internal/services/backend"
	"orsi/internal/testsupport"
)

func newCoordinator(t *testing.T, fb *testsupport.FakeBackend, opts coordinator.Options) *coordinator.Coordinator {
	t.Helper()
	client, err := backend.NewClient(fb.URL(), backend.Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return coordinator.New(client, opts)
}

func TestMountLoadsCollections(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.Seed([]string{"a.mp4"}, []string{"b.mp4"})
	var reasons []api.RefreshReason
	coord := newCoordinator(t, fb, coordinator.Options{
		OnRefresh: func(reason api.RefreshReason, _ api.VideoCollections) { reasons = append(reasons, reason) },
	})

	if err := coord.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	got := coord.Collections()
	if !slices.Equal(got.Uploaded, []string{"a.mp4"}) || !slices.Equal(got.Processed, []string{"b.mp4"}) {
		t.Fatalf("unexpected collections %+v", got)
	}
	if !slices.Equal(reasons, []api.RefreshReason{api.ReasonInitial}) {
		t.Fatalf("unexpected refresh reasons %v", reasons)
	}
	if coord.Revision() != 1 {
		t.Fatalf("expected revision 1, got %d", coord.Revision())
	}

	got.Uploaded[0] = "mutated"
	if coord.Uploaded()[0] != "a.mp4" {
		t.Fatal("callers must receive copies")
	}
}

func TestInitialFetchFailureShowsAlertWithoutRetry(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.Seed([]string{"a.mp4"}, nil)
	fb.Fail(testsupport.RouteList, 1)
	var alerts []string
	coord := newCoordinator(t, fb, coordinator.Options{
		OnAlert: func(message string, _ error) { alerts = append(alerts, message) },
	})

	err := coord.Mount(context.Background())
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	got := coord.Collections()
	if len(got.Uploaded) != 0 || len(got.Processed) != 0 {
		t.Fatalf("collections should be empty, got %+v", got)
	}
	if msg, ok := coord.Alert(); !ok || msg != "Failed to fetch videos." {
		t.Fatalf("unexpected alert %q", msg)
	}
	if !slices.Equal(alerts, []string{"Failed to fetch videos."}) {
		t.Fatalf("unexpected alert callbacks %v", alerts)
	}

	coord.DismissAlert()
	if _, ok := coord.Alert(); ok {
		t.Fatal("alert should be cleared")
	}
	if got := fb.Count(testsupport.RouteList); got != 1 {
		t.Fatalf("dismissal must not refetch, got %d list requests", got)
	}
}

func TestReportErrorOverwritesAlert(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	coord := newCoordinator(t, fb, coordinator.Options{})

	coord.ReportError(services.Wrap(services.ErrDeleteFailed, "delete", "x.mp4", "", errors.New("boom")))
	coord.ReportError(services.Wrap(services.ErrMetadataFetchFailed, "metadata", "x.mp4", "", errors.New("boom")))
	coord.ReportError(nil)

	if msg, _ := coord.Alert(); msg != "Failed to fetch metadata." {
		t.Fatalf("expected latest alert to win, got %q", msg)
	}
}

type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	gates   map[int]chan struct{}
	results map[int]api.VideoCollections
	errs    map[int]error
	started chan int
}

func (g *gatedFetcher) ListVideos(context.Context) (api.VideoCollections, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	gate := g.gates[call]
	g.mu.Unlock()
	g.started <- call
	if gate != nil {
		<-gate
	}
	return g.results[call], g.errs[call]
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	results := map[int]api.VideoCollections{
		1: {Uploaded: []string{"old.mp4"}},
		2: {Processed: []string{"new.mp4"}},
	}
	fetcher := &gatedFetcher{
		gates:   map[int]chan struct{}{1: slow},
		results: results,
		errs:    map[int]error{},
		started: make(chan int, 2),
	}
	coord := coordinator.New(fetcher, coordinator.Options{})

	done := make(chan error, 1)
	go func() { done <- coord.Refresh(context.Background(), api.ReasonUpload) }()
	<-fetcher.started
	if err := coord.Refresh(context.Background(), api.ReasonManual); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	<-fetcher.started
	close(slow)
	if err := <-done; err != nil {
		t.Fatalf("stale Refresh: %v", err)
	}

	got := coord.Collections()
	if len(got.Uploaded) != 0 || !slices.Equal(got.Processed, []string{"new.mp4"}) {
		t.Fatalf("stale result overwrote newer collections: %+v", got)
	}
	if coord.Revision() != 1 {
		t.Fatalf("expected one applied refresh, got %d", coord.Revision())
	}
}

func TestStaleRefreshFailureIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	fetcher := &gatedFetcher{
		gates:   map[int]chan struct{}{1: slow},
		results: map[int]api.VideoCollections{2: {Uploaded: []string{"a.mp4"}}},
		errs:    map[int]error{1: errors.New("timeout")},
		started: make(chan int, 2),
	}
	coord := coordinator.New(fetcher, coordinator.Options{})

	done := make(chan error, 1)
	go func() { done <- coord.Refresh(context.Background(), api.ReasonDelete) }()
	<-fetcher.started
	if err := coord.Refresh(context.Background(), api.ReasonManual); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	<-fetcher.started
	close(slow)
	if err := <-done; err != nil {
		t.Fatalf("expected stale failure to be dropped, got %v", err)
	}
	if _, ok := coord.Alert(); ok {
		t.Fatal("stale failure must not raise an alert")
	}
}

func TestProcessedDeleteLeavesUploadedIntact(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.Seed([]string{"up.mp4"}, []string{"old.mp4", "keep.mp4"})
	coord := newCoordinator(t, fb, coordinator.Options{})
	client, err := backend.NewClient(fb.URL(), backend.Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	if err := client.Delete(ctx, api.FolderProcessed, "old.mp4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := coord.Refresh(ctx, api.ReasonDelete); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := coord.Collections()
	if !slices.Equal(got.Uploaded, []string{"up.mp4"}) || !slices.Equal(got.Processed, []string{"keep.mp4"}) {
		t.Fatalf("unexpected collections after delete %+v", got)
	}
}
