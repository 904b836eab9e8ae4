package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mediavault/internal/catalog"
	"mediavault/internal/logging"
	"mediavault/internal/media"
	"mediavault/internal/transfer"
)

// transferStatusError turns a failed terminal status into an error that still
// classifies through services.Kind.
type transferStatusError struct {
	status transfer.Status
}

func (e transferStatusError) Error() string { return e.status.Message }

func (e transferStatusError) Unwrap() error { return e.status.Err }

func checkStatus(status transfer.Status) error {
	if status.Kind == transfer.StatusSuccess {
		return nil
	}
	return transferStatusError{status: status}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Download an item's encrypted file into storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			rec, err := manager.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			printer := newProgressPrinter(cmd.ErrOrStderr(), "Downloading "+rec.Title)
			status, err := manager.DownloadItem(cmd.Context(), id, printer.Emit)
			printer.Close()
			if err != nil {
				return err
			}
			if err := checkStatus(status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s) to %s\n",
				rec.Title, media.DisplaySize(status.Written), manager.Layout().StoredPath(rec.Item))
			return nil
		},
	}
}

func newDownloadAllCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var queryFlag string

	cmd := &cobra.Command{
		Use:   "download-all",
		Short: "Download every catalog item that is not stored yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			filter := catalog.Filter{Query: queryFlag}
			if kindFlag != "" {
				kind, err := media.ParseFileKind(kindFlag)
				if err != nil {
					return err
				}
				filter.Kind = kind
			}

			progress := newBatchProgress(cmd)
			result, batchErr := manager.DownloadAll(cmd.Context(), filter, progress.emit)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloaded %d, failed %d, skipped %d in %s\n",
				len(result.Succeeded), len(result.Failed), result.Skipped, result.Duration.Round(time.Millisecond))
			if len(result.Failed) > 0 {
				ids := make([]int64, 0, len(result.Failed))
				for id := range result.Failed {
					ids = append(ids, id)
				}
				slices.Sort(ids)
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []string{strconv.FormatInt(id, 10), result.Failed[id].Message})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "ID", align: alignRight},
					{header: "Failure", maxWidth: 72},
				}, rows))
			}
			if batchErr != nil {
				return batchErr
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d downloads failed", len(result.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Only download items of this kind")
	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Only download items whose title matches")
	return cmd
}

// batchProgress prints sampled per-item progress lines for parallel
// downloads, which would garble a single progress bar.
type batchProgress struct {
	cmd      *cobra.Command
	mu       sync.Mutex
	samplers map[int64]*logging.ProgressSampler
}

func newBatchProgress(cmd *cobra.Command) *batchProgress {
	return &batchProgress{cmd: cmd, samplers: make(map[int64]*logging.ProgressSampler)}
}

func (b *batchProgress) emit(id int64, status transfer.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	errOut := b.cmd.ErrOrStderr()
	switch status.Kind {
	case transfer.StatusProgress:
		sampler, ok := b.samplers[id]
		if !ok {
			sampler = logging.NewProgressSampler(25)
			b.samplers[id] = sampler
		}
		if sampler.ShouldLog(status.Percent) {
			fmt.Fprintf(errOut, "[%d] %d%%\n", id, status.Percent)
		}
	case transfer.StatusSuccess:
		fmt.Fprintf(errOut, "[%d] done (%s)\n", id, media.DisplaySize(status.Written))
	default:
		fmt.Fprintf(errOut, "[%d] %s\n", id, status.Message)
	}
}

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <id>",
		Short: "Decrypt a stored item into its temporary playable file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			rec, err := manager.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			printer := newProgressPrinter(cmd.ErrOrStderr(), "Decrypting "+rec.Title)
			status, err := manager.PrepareItem(cmd.Context(), id, printer.Emit)
			printer.Close()
			if err != nil {
				return err
			}
			if err := checkStatus(status); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), manager.TempPath(rec.Kind))
			return nil
		},
	}
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "release <kind>",
		Short:     "Delete the temporary playable file for a kind",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := media.ParseFileKind(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			if err := manager.ReleaseTemp(cmd.Context(), kind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s temp file\n", kind)
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item's stored file, keeping its catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			if err := manager.DeleteItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted stored file for item %d\n", id)
			return nil
		},
	}
}

func newImportFileCommand(ctx *commandContext) *cobra.Command {
	var (
		idFlag        int64
		titleFlag     string
		kindFlag      string
		urlFlag       string
		thumbnailFlag string
	)

	cmd := &cobra.Command{
		Use:   "import-file <path>",
		Short: "Encrypt a local file into storage and add it to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := media.ParseFileKind(kindFlag)
			if err != nil {
				return err
			}
			item := media.Item{
				ID:        idFlag,
				Title:     strings.TrimSpace(titleFlag),
				URL:       strings.TrimSpace(urlFlag),
				Thumbnail: strings.TrimSpace(thumbnailFlag),
				Kind:      kind,
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}

			printer := newProgressPrinter(cmd.ErrOrStderr(), "Encrypting "+item.Title)
			status, err := manager.ImportFile(cmd.Context(), args[0], item, printer.Emit)
			printer.Close()
			if err != nil {
				return err
			}
			if err := checkStatus(status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s) as item %d\n",
				item.Title, media.DisplaySize(status.Written), item.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&idFlag, "id", 0, "Catalog id for the item")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Item title")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Media kind (video, audio, pdf, csv)")
	cmd.Flags().StringVar(&urlFlag, "url", "", "Remote URL to record for later downloads")
	cmd.Flags().StringVar(&thumbnailFlag, "thumbnail", "", "Thumbnail URL")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newSizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "size <id>",
		Short: "Ask the media server for an item's file size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.ensureManager()
			if err != nil {
				return err
			}
			size, err := manager.ProbeSize(cmd.Context(), id)
			if err != nil {
				return err
			}
			if size < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "unknown")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", media.DisplaySize(size), size)
			return nil
		},
	}
}

func kindNames() []string {
	kinds := media.Kinds()
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}
	return names
}
