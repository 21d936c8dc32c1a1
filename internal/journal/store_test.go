package journal_test

import (
	"context"
	"testing"
	"time"

	"orsi/internal/api"
	"orsi/internal/journal"
	"orsi/internal/testsupport"
)

func record(t *testing.T, store *journal.Store, event api.Event) int64 {
	t.Helper()
	id, err := store.Record(context.Background(), event)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return id
}

func TestRecordAndListChronological(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventUpload, Folder: api.FolderUploaded, Filename: "a.mp4", At: base})
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventJobStatus, Filename: "a.mp4", Detail: "processing 40%", At: base.Add(time.Second)})
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventPromotion, Filename: "a.mp4", At: base.Add(2 * time.Second)})

	events, err := store.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != api.EventUpload || events[2].Kind != api.EventPromotion {
		t.Fatalf("events not chronological: %+v", events)
	}
	if events[1].Detail != "processing 40%" {
		t.Fatalf("detail not preserved: %q", events[1].Detail)
	}
	if !events[0].At.Equal(base) {
		t.Fatalf("timestamp mismatch: %v", events[0].At)
	}
	if events[0].Folder != api.FolderUploaded || events[1].Folder != "" {
		t.Fatalf("unexpected folders %q %q", events[0].Folder, events[1].Folder)
	}
}

func TestListLimitKeepsNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"} {
		record(t, store, api.Event{SessionID: "s1", Kind: api.EventUpload, Filename: name})
	}

	events, err := store.List(context.Background(), journal.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 || events[0].Filename != "c.mp4" || events[1].Filename != "d.mp4" {
		t.Fatalf("expected newest two in order, got %+v", events)
	}
}

func TestListFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventUpload, Filename: "a.mp4", At: old})
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventDelete, Filename: "a.mp4"})
	record(t, store, api.Event{SessionID: "s2", Kind: api.EventAlert, Detail: "Failed to fetch videos."})
	record(t, store, api.Event{SessionID: "s2", Kind: api.EventUpload, Filename: "b.mp4"})

	cases := []struct {
		name   string
		filter journal.Filter
		want   int
	}{
		{name: "session", filter: journal.Filter{SessionID: "s2"}, want: 2},
		{name: "filename", filter: journal.Filter{Filename: "a.mp4"}, want: 2},
		{name: "kinds", filter: journal.Filter{Kinds: []api.EventKind{api.EventUpload, api.EventAlert}}, want: 3},
		{name: "since", filter: journal.Filter{Since: time.Now().Add(-time.Hour)}, want: 3},
		{name: "combined", filter: journal.Filter{SessionID: "s1", Kinds: []api.EventKind{api.EventDelete}}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := store.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(events) != tc.want {
				t.Fatalf("expected %d events, got %d: %+v", tc.want, len(events), events)
			}
		})
	}
}

func TestRecordRequiresSessionAndKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	if _, err := store.Record(context.Background(), api.Event{Kind: api.EventUpload}); err == nil {
		t.Fatal("expected error for missing session id")
	}
	if _, err := store.Record(context.Background(), api.Event{SessionID: "s1"}); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestSessionsAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	record(t, store, api.Event{SessionID: "old", Kind: api.EventRefresh, At: old})
	record(t, store, api.Event{SessionID: "old", Kind: api.EventRefresh, At: old.Add(time.Minute)})
	record(t, store, api.Event{SessionID: "new", Kind: api.EventRefresh})

	sessions, err := store.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "new" {
		t.Fatalf("expected newest session first, got %+v", sessions)
	}
	if sessions[1].Events != 2 || !sessions[1].LastAt.After(sessions[1].FirstAt) {
		t.Fatalf("unexpected summary %+v", sessions[1])
	}

	removed, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned events, got %d", removed)
	}
	sessions, err = store.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session after prune, got %+v", sessions)
	}
}

func TestMigrationsIdempotentAcrossReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	record(t, store, api.Event{SessionID: "s1", Kind: api.EventUpload, Filename: "a.mp4"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	version, err := reopened.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != "002_events_filename" {
		t.Fatalf("unexpected schema version %q", version)
	}
	if reopened.Path() != cfg.JournalPath() {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
	events, err := reopened.List(context.Background(), journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected event to survive reopen, got %d", len(events))
	}
}
