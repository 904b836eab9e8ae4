package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var reconcile bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale temporary playable files",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			age := maxAge
			if !cmd.Flags().Changed("max-age") {
				age = -1
			}
			result := manager.Cleanup(cmd.Context(), age)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d temp files\n", len(result.Removed))
			for _, path := range result.Removed {
				fmt.Fprintf(out, "  %s\n", path)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", failure.Path, failure.Error)
			}

			if reconcile {
				changed, err := manager.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Reconciled %d catalog entries\n", changed)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d temp files could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove temp files older than this (default pipeline.temp_max_age_hours)")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Also resync downloaded flags with the storage directory")
	return cmd
}
