package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mediavault/internal/api"
	"mediavault/internal/library"
	"mediavault/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var cleanupInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library over the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.API.Bind = bind
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if _, err := manager.Reconcile(runCtx); err != nil {
				logging.WarnWithContext(ctx.logger, "catalog reconcile failed", "reconcile_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "downloaded flags may be stale until the next download"),
				)
			}

			server, err := api.NewServer(cfg, manager, ctx.logger)
			if err != nil {
				return err
			}
			if err := server.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())

			group, groupCtx := errgroup.WithContext(runCtx)
			group.Go(func() error {
				err := server.Serve()
				if err != nil {
					server.Stop()
				}
				return err
			})
			group.Go(func() error {
				return runCleanupLoop(groupCtx, manager, cleanupInterval)
			})
			return group.Wait()
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default api.bind)")
	cmd.Flags().DurationVar(&cleanupInterval, "cleanup-interval", time.Hour, "How often to remove stale temp files (0 disables)")
	return cmd
}

// runCleanupLoop sweeps stale temp files until ctx is done.
func runCleanupLoop(ctx context.Context, manager *library.Manager, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	manager.Cleanup(ctx, -1)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			manager.Cleanup(ctx, -1)
		}
	}
}
