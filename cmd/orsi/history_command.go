package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"orsi/internal/api"
	"orsi/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var filename string
	var kinds []string
	var since time.Duration
	var limit int
	var listSessions bool
	var prune time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local activity journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case prune > 0:
					removed, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d events older than %s\n", removed, prune)
					return nil
				case listSessions:
					sessions, err := store.Sessions(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, sessions)
					}
					fmt.Fprint(out, renderSessions(sessions))
					return nil
				}

				filter := journal.Filter{SessionID: sessionID, Filename: filename, Limit: limit}
				for _, kind := range kinds {
					filter.Kinds = append(filter.Kinds, api.EventKind(strings.ToLower(strings.TrimSpace(kind))))
				}
				if since > 0 {
					filter.Since = time.Now().Add(-since)
				}
				events, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					if events == nil {
						events = []api.Event{}
					}
					return writeJSON(cmd, events)
				}
				fmt.Fprint(out, renderEvents(events))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only show events of one console session")
	cmd.Flags().StringVar(&filename, "file", "", "Only show events for one video")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Only show these event kinds (upload, job_status, promotion, delete, refresh, alert, metadata)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show events newer than this (e.g. 24h)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries")
	cmd.Flags().BoolVar(&listSessions, "sessions", false, "Summarize sessions instead of listing events")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete events older than this and exit")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderEvents(events []api.Event) string {
	if len(events) == 0 {
		return "No activity recorded.\n"
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		subject := event.Filename
		if event.Folder != "" && subject != "" {
			subject = string(event.Folder) + "/" + subject
		}
		rows = append(rows, []string{
			event.At.Local().Format("2006-01-02 15:04:05"),
			shortSessionID(event.SessionID),
			string(event.Kind),
			subject,
			event.Detail,
		})
	}
	return renderTable("", []string{"Time", "Session", "Kind", "Video", "Detail"}, rows, nil) + "\n"
}

func renderSessions(sessions []journal.SessionSummary) string {
	if len(sessions) == 0 {
		return "No sessions recorded.\n"
	}
	rows := make([][]string, 0, len(sessions))
	for _, summary := range sessions {
		rows = append(rows, []string{
			summary.SessionID,
			strconv.Itoa(summary.Events),
			summary.FirstAt.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(summary.LastAt),
		})
	}
	return renderTable("", []string{"Session", "Events", "Started", "Last Activity"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}) + "\n"
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
