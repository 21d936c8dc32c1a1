package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"orsi/internal/api"
	"orsi/internal/fileutil"
	"orsi/internal/services"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <uploaded|processed> <file>",
		Short: "Download a video to the download directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := api.ParseFolder(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dst, err := downloadTarget(cfg.Paths.DownloadDir, output, args[1])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			body, size, err := client.OpenStream(cmd.Context(), folder, args[1])
			if err != nil {
				return services.Wrap(services.ErrFetchFailed, "fetch", string(folder)+"/"+args[1], "", err)
			}
			defer body.Close()

			var src io.Reader = body
			if bar := newTransferBar(cmd, size, "fetching "+args[1]); bar != nil {
				defer bar.Finish()
				src = io.TeeReader(body, bar)
			}
			written, err := fileutil.WriteAtomic(dst, src, size)
			if err != nil {
				return services.Wrap(services.ErrFetchFailed, "fetch", string(folder)+"/"+args[1], "", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", dst, humanize.Bytes(uint64(written)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (defaults to paths.download_dir)")
	return cmd
}

// downloadTarget resolves the destination path. An existing directory or a
// value ending in a separator receives the video's own name.
func downloadTarget(downloadDir, output, filename string) (string, error) {
	name := filepath.Base(filename)
	output = strings.TrimSpace(output)
	if output == "" {
		return filepath.Join(downloadDir, name), nil
	}
	if strings.HasSuffix(output, string(os.PathSeparator)) {
		return filepath.Join(output, name), nil
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name), nil
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return abs, nil
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "play <uploaded|processed> <file>",
		Short: "Open a video stream in the configured player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := api.ParseFolder(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			streamURL := client.StreamURL(folder, args[1])
			if printOnly || cfg.Player.Command == "" {
				fmt.Fprintln(cmd.OutOrStdout(), streamURL)
				return nil
			}

			playerArgs := append(append([]string{}, cfg.Player.Args...), streamURL)
			player := exec.CommandContext(cmd.Context(), cfg.Player.Command, playerArgs...)
			player.Stdin = cmd.InOrStdin()
			player.Stdout = cmd.OutOrStdout()
			player.Stderr = cmd.ErrOrStderr()
			if err := player.Run(); err != nil {
				return fmt.Errorf("run player %s: %w", cfg.Player.Command, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the stream URL instead of launching the player")
	return cmd
}
