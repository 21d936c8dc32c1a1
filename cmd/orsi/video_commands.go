package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orsi/internal/api"
	"orsi/internal/console"
	"orsi/internal/services"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var folderFlag string
	var withJobs bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List uploaded and processed videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			var folder api.Folder
			if strings.TrimSpace(folderFlag) != "" {
				parsed, err := api.ParseFolder(folderFlag)
				if err != nil {
					return err
				}
				folder = parsed
			}
			return ctx.withSession(cmd, func(session *console.Session) error {
				if err := session.Coordinator().Mount(cmd.Context()); err != nil {
					return err
				}
				if withJobs {
					session.Registry().PollOnce(cmd.Context())
				}
				snap := session.Snapshot()
				if jsonOutput {
					return writeJSON(cmd, listPayload(snap, folder))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderVideoList(snap, folder, withJobs))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&folderFlag, "folder", "f", "", "Only list one folder (uploaded or processed)")
	cmd.Flags().BoolVar(&withJobs, "jobs", false, "Query the job status of uploaded videos")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type listOutput struct {
	Uploaded  []api.UploadJob `json:"uploaded"`
	Processed []string        `json:"processed"`
}

func listPayload(snap console.Snapshot, folder api.Folder) listOutput {
	out := listOutput{Uploaded: []api.UploadJob{}, Processed: []string{}}
	if folder != api.FolderProcessed {
		out.Uploaded = snap.Uploaded
	}
	if folder != api.FolderUploaded {
		out.Processed = snap.Processed
	}
	return out
}

func renderVideoList(snap console.Snapshot, folder api.Folder, withJobs bool) string {
	headers := []string{"Folder", "Name"}
	if withJobs {
		headers = append(headers, "Status", "Progress")
	}
	var rows [][]string
	if folder != api.FolderProcessed {
		for _, job := range snap.Uploaded {
			row := []string{string(api.FolderUploaded), job.Filename}
			if withJobs {
				row = append(row, jobStatusLabel(job.Status), fmt.Sprintf("%d%%", job.Progress))
			}
			rows = append(rows, row)
		}
	}
	if folder != api.FolderUploaded {
		for _, name := range snap.Processed {
			rows = append(rows, []string{string(api.FolderProcessed), name})
		}
	}
	if len(rows) == 0 {
		return "No videos found.\n"
	}
	return renderTable("", headers, rows, nil) + "\n"
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video and start its processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(session *console.Session) error {
				runCtx := cmd.Context()
				if timeout > 0 {
					var cancel context.CancelFunc
					runCtx, cancel = context.WithTimeout(runCtx, timeout)
					defer cancel()
				}

				session.Uploads().SetProgress(uploadProgress(cmd))
				stored, err := session.Upload(runCtx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Upload", statusOK, session.Uploads().Notice(), colorize))
				if !wait {
					return nil
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				return waitForJob(runCtx, cmd, session, stored, cfg.PollInterval())
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow the processing job until it finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits indefinitely)")
	return cmd
}

// waitForJob drives the registry until the tracked job stops being tracked.
func waitForJob(ctx context.Context, cmd *cobra.Command, session *console.Session, filename string, interval time.Duration) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last api.UploadJob
	lastAlert := ""
	for {
		if last.Status == api.JobUnknown && !slices.Contains(session.Coordinator().Uploaded(), filename) {
			_ = session.Refresh(ctx)
		}
		session.Registry().PollOnce(ctx)
		if alert, ok := session.Coordinator().Alert(); ok && alert != lastAlert {
			fmt.Fprintln(out, renderStatusLine("Alert", statusWarn, alert, colorize))
			lastAlert = alert
		}
		job, _ := session.Uploads().Job()
		if job != last && job.Status != api.JobUnknown {
			fmt.Fprintln(out, renderStatusLine("Job", jobStatusKind(job.Status),
				fmt.Sprintf("%s %s %s", filename, jobStatusLabel(job.Status), progressBar(job.Progress)), colorize))
			last = job
		}
		if job.Status == api.JobFailed {
			return services.Wrap(services.ErrUploadFailed, "process", filename, "processing job failed", nil)
		}
		if _, still := session.Uploads().Tracked(); !still {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("job for %s still %s: %w", filename, last.Status.String(), ctx.Err())
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <uploaded|processed> <file>",
		Aliases: []string{"rm"},
		Short:   "Delete a video from the backend",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := api.ParseFolder(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(session *console.Session) error {
				if err := session.Delete(cmd.Context(), folder, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", folder, args[1])
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <file>",
		Short: "Show the processing job status of an uploaded video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.JobStatus(cmd.Context(), args[0])
			if err != nil {
				return services.Wrap(services.ErrJobStatusFetchFailed, "job status", args[0], "", err)
			}
			progress, err := client.JobProgress(cmd.Context(), args[0])
			if err != nil {
				return services.Wrap(services.ErrJobStatusFetchFailed, "job progress", args[0], "", err)
			}
			job := api.UploadJob{Filename: args[0], Status: status.Status, Progress: api.ClampProgress(progress.Progress)}
			if progress.Completed() {
				job.Progress = 100
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Job", jobStatusKind(job.Status), args[0]+" "+jobStatusLabel(job.Status), colorize))
			fmt.Fprintln(out, renderStatusLine("Progress", jobStatusKind(job.Status), progressBar(job.Progress), colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var raw bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "metadata <file>",
		Aliases: []string{"meta"},
		Short:   "Show the AI metadata document of a video",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(session *console.Session) error {
				detail, err := session.Metadata(cmd.Context(), args[0])
				if err != nil {
					fmt.Fprint(cmd.OutOrStdout(), renderDetail(detail, raw, shouldColorize(cmd.OutOrStdout())))
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, detail)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetail(detail, raw, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the document instead of a summary")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the document and summary as JSON")
	return cmd
}
