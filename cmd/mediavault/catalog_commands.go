package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediavault/internal/api"
	"mediavault/internal/catalog"
	"mediavault/internal/library"
	"mediavault/internal/media"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the media catalog",
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogSyncCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))

	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bundled sample listings, or a JSON listing with --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}

			var result library.SyncResult
			if fileFlag != "" {
				if kindFlag == "" {
					return fmt.Errorf("--kind is required with --file")
				}
				kind, err := media.ParseFileKind(kindFlag)
				if err != nil {
					return err
				}
				file, err := os.Open(fileFlag)
				if err != nil {
					return fmt.Errorf("open listing: %w", err)
				}
				defer file.Close()
				result, err = manager.ImportSampleList(cmd.Context(), file, kind)
				if err != nil {
					return err
				}
			} else {
				var kinds []media.FileKind
				if kindFlag != "" {
					kind, err := media.ParseFileKind(kindFlag)
					if err != nil {
						return err
					}
					kinds = append(kinds, kind)
				}
				result, err = manager.ImportSamples(cmd.Context(), kinds...)
				if err != nil {
					return err
				}
			}

			printSyncResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Media kind (video, audio, pdf, csv)")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "JSON listing to import instead of the bundled samples")
	return cmd
}

func newCatalogSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the video listing from the media server",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			result, err := manager.SyncRemote(cmd.Context())
			if err != nil {
				if catalog.IsTokenExpired(err) {
					return fmt.Errorf("catalog sync: %w (refresh the server token)", err)
				}
				return fmt.Errorf("catalog sync: %w", err)
			}
			printSyncResult(cmd, result)
			return nil
		},
	}
}

func printSyncResult(cmd *cobra.Command, result library.SyncResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog %s: %d imported, %d skipped, %d reconciled\n",
		result.Source, result.Imported, result.Skipped, result.Reconciled)
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var queryFlag string
	var downloadedOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}

			filter := catalog.Filter{Query: queryFlag, DownloadedOnly: downloadedOnly}
			if kindFlag != "" {
				kind, err := media.ParseFileKind(kindFlag)
				if err != nil {
					return err
				}
				filter.Kind = kind
			}

			records, err := manager.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, api.FromRecords(records))
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "ID", align: alignRight},
				{header: "Kind"},
				{header: "Title", maxWidth: 48},
				{header: "Downloaded"},
				{header: "Size", align: alignRight},
			}, catalogRows(records)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Only show items of this kind")
	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Case and accent insensitive title filter")
	cmd.Flags().BoolVarP(&downloadedOnly, "downloaded", "d", false, "Only show downloaded items")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func catalogRows(records []*catalog.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		size := rec.FileSize
		if strings.TrimSpace(size) == "" {
			size = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			string(rec.Kind),
			rec.Title,
			yesNo(rec.Downloaded),
			size,
		})
	}
	return rows
}
