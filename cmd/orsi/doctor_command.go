package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"orsi/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check backend connectivity and local directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var lister preflight.Lister
			if client, err := ctx.client(); err == nil {
				lister = client
			}
			results := preflight.RunAll(cmd.Context(), cfg, lister)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, result := range results {
				kind := statusOK
				switch {
				case !result.Passed && result.Optional:
					kind = statusWarn
				case !result.Passed:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
