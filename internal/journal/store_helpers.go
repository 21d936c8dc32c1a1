package journal

import (
	"database/sql"
	"fmt"
	"time"

	"orsi/internal/api"
)

const eventColumns = "id, session_id, kind, folder, filename, detail, created_at"

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (api.Event, error) {
	var (
		event     api.Event
		kind      string
		folder    sql.NullString
		filename  sql.NullString
		detail    sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&event.ID, &event.SessionID, &kind, &folder, &filename, &detail, &createdAt); err != nil {
		return api.Event{}, fmt.Errorf("scan event: %w", err)
	}
	event.Kind = api.EventKind(kind)
	event.Folder = api.Folder(folder.String)
	event.Filename = filename.String
	event.Detail = detail.String
	event.At = parseTime(createdAt)
	return event, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
