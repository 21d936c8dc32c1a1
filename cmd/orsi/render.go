package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"orsi/internal/console"
	"orsi/internal/metadata"
	"orsi/internal/registry"
)

func renderSnapshot(snap console.Snapshot, colorize bool) string {
	var b strings.Builder
	writeLines := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if snap.Alert != "" {
		writeLines(renderStatusLine("Alert", statusError, snap.Alert+" (type dismiss to clear)", colorize))
	}
	if snap.Notice != "" {
		writeLines(renderStatusLine("Upload", statusOK, snap.Notice, colorize))
	}
	switch {
	case snap.Uploading && snap.Selected != nil:
		writeLines(renderStatusLine("Upload", statusInfo, "uploading "+snap.Selected.Name+"...", colorize))
	case snap.Selected != nil:
		writeLines(renderStatusLine("Selected", statusInfo, fmt.Sprintf("%s (%s)", snap.Selected.Name, humanize.Bytes(uint64(snap.Selected.Size))), colorize))
	}
	if snap.Tracked != nil {
		writeLines(renderStatusLine("Tracking", jobStatusKind(snap.Tracked.Status),
			fmt.Sprintf("%s %s %s", snap.Tracked.Filename, jobStatusLabel(snap.Tracked.Status), progressBar(snap.Tracked.Progress)), colorize))
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}

	writeLines(renderSectionHeader(fmt.Sprintf("Uploaded (%d)", len(snap.Uploaded)), colorize)...)
	if len(snap.Uploaded) == 0 {
		writeLines("No uploaded videos.")
	} else {
		rows := make([][]string, 0, len(snap.Uploaded))
		for _, job := range snap.Uploaded {
			rows = append(rows, []string{job.Filename, jobStatusLabel(job.Status), progressBar(job.Progress)})
		}
		writeLines(renderTable("", []string{"Name", "Status", "Progress"}, rows, nil))
	}
	b.WriteByte('\n')

	title := fmt.Sprintf("Processed (%d)", len(snap.Processed))
	if snap.LoadingProcessed {
		title += " refreshing..."
	}
	writeLines(renderSectionHeader(title, colorize)...)
	if len(snap.Processed) == 0 {
		writeLines("No processed videos.")
	} else {
		rows := make([][]string, 0, len(snap.Processed))
		for _, name := range snap.Processed {
			rows = append(rows, []string{name})
		}
		writeLines(renderTable("", []string{"Name"}, rows, nil))
	}

	if snap.Detail != nil {
		b.WriteByte('\n')
		b.WriteString(renderDetail(*snap.Detail, false, colorize))
	}
	return b.String()
}

func renderDetail(detail registry.Detail, raw bool, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Metadata: "+detail.Filename, colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if !detail.Available {
		b.WriteString("No metadata available for this video.\n")
		return b.String()
	}
	if raw || !detail.Summary.Structured {
		b.WriteString(metadata.Pretty(detail.Document))
		b.WriteByte('\n')
		return b.String()
	}

	summary := detail.Summary
	fmt.Fprintf(&b, "Frames: %d (%d with detections), detections: %d\n",
		summary.Frames, summary.FramesWithDetections, summary.Detections)
	if len(summary.Labels) == 0 {
		b.WriteString("No objects detected.\n")
		return b.String()
	}
	rows := make([][]string, 0, len(summary.Labels))
	for _, label := range summary.Labels {
		rows = append(rows, []string{label.Label, strconv.Itoa(label.Count), strconv.Itoa(label.Frames)})
	}
	b.WriteString(renderTable("", []string{"Label", "Detections", "Frames"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	b.WriteByte('\n')
	return b.String()
}
