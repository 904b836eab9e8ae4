package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediavault/internal/media"
	"mediavault/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration health and library contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, configSource(ctx), colorize))
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckNotificationsFromConfig(cfg))
			failed := 0
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if cfg.Remote.BaseURL == "" {
				fmt.Fprintln(out, renderStatusLine("Media server", statusWarn, "remote.base_url not set", colorize))
			}
			if free, err := preflight.AvailableBytes(cfg.Paths.StorageDir); err == nil {
				fmt.Fprintln(out, renderStatusLine("Free space", statusInfo, humanize.IBytes(free), colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Library", colorize) {
				fmt.Fprintln(out, line)
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Catalog", statusError, err.Error(), colorize))
				return fmt.Errorf("%d checks failed", failed+1)
			}
			counts, err := manager.Store().Count(cmd.Context())
			if err != nil {
				return err
			}
			for _, kind := range media.Kinds() {
				fmt.Fprintln(out, renderStatusLine(string(kind), statusInfo, fmt.Sprintf("%d items", counts[kind]), colorize))
			}
			stored, err := manager.Layout().ListStored()
			if err == nil {
				fmt.Fprintln(out, renderStatusLine("Stored files", statusInfo, fmt.Sprintf("%d", len(stored)), colorize))
			}
			temps, err := manager.Layout().ListTemps()
			if err == nil && len(temps) > 0 {
				sort.Slice(temps, func(i, j int) bool { return temps[i].Kind < temps[j].Kind })
				for _, temp := range temps {
					message := fmt.Sprintf("%s, %s", humanize.IBytes(uint64(max(temp.Size, 0))), humanize.Time(temp.ModTime))
					fmt.Fprintln(out, renderStatusLine("Temp "+string(temp.Kind), statusWarn, message, colorize))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}
}

func configSource(ctx *commandContext) string {
	if ctx.configPath == "" {
		return "defaults"
	}
	if !ctx.configExists {
		return ctx.configPath + " (not found, using defaults)"
	}
	return ctx.configPath
}
