package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"orsi/internal/console"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the live console: lists, job progress and interactive commands",
		Long: "Run the live console. The video lists and the progress of every uploaded video\n" +
			"refresh automatically; type commands on stdin to act on them.\n\n" + console.Help,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(cmd, true)
			if err != nil {
				return err
			}
			defer session.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := session.Start(runCtx); err != nil {
				return err
			}
			return runWatchLoop(runCtx, cmd, session)
		},
	}
}

func runWatchLoop(ctx context.Context, cmd *cobra.Command, session *console.Session) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	// cancel runs before Wait so quitting aborts in-flight commands.
	var pending sync.WaitGroup
	defer pending.Wait()
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(loopCtx, cmd.InOrStdin())

	render := func() {
		frame := renderSnapshot(session.Snapshot(), colorize)
		if colorize {
			fmt.Fprint(out, ansiClear)
		}
		fmt.Fprintln(out, frame)
		fmt.Fprint(out, "> ")
	}
	render()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case <-session.Changes():
			render()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			command, err := console.ParseCommand(line)
			if err != nil {
				session.Coordinator().ReportError(err)
				continue
			}
			switch command.Kind {
			case console.CommandQuit:
				return nil
			case console.CommandHelp:
				fmt.Fprintln(out, console.Help)
				continue
			}
			pending.Add(1)
			go func() {
				defer pending.Done()
				// Failures are already shown in the alert slot.
				_ = session.Execute(loopCtx, command)
			}()
		}
	}
}

// readLines forwards input lines until EOF or ctx ends. The reader goroutine
// may stay blocked on a terminal read until the process exits.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
