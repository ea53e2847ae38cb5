package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bbdrop/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		nameFlag     string
		hostFlag     string
		templateFlag string
	)

	cmd := &cobra.Command{
		Use:   "add <folder>...",
		Short: "Queue folders for the daemon to upload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nameFlag != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single folder; got %d", len(args))
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					folder, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve folder path %s: %w", arg, err)
					}
					if existing, err := store.GetByPath(cmd.Context(), folder); err != nil {
						return err
					} else if existing != nil {
						fmt.Fprintf(out, "Skipped %s: already queued as item %d (%s)\n", folder, existing.ID, existing.Status)
						continue
					}
					item, err := store.NewGallery(cmd.Context(), folder, nameFlag, hostFlag, templateFlag)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Queued %s as item %d\n", folder, item.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Gallery name (single folder only)")
	cmd.Flags().StringVar(&hostFlag, "host", "", "Image host id for these galleries")
	cmd.Flags().StringVarP(&templateFlag, "template", "t", "", "BBCode template name")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", raw, statusNames())
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						displayGalleryName(item),
						string(item.Status),
						formatItemProgress(item),
						item.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				table := renderTable(
					[]string{"ID", "Gallery", "Status", "Progress", "Added"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var allFailed bool

	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed or incomplete items back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allFailed && len(args) == 0 {
				return fmt.Errorf("specify item ids or --all-failed")
			}
			return ctx.withStore(func(store *queue.Store) error {
				ids := make([]int64, 0, len(args))
				for _, arg := range args {
					id, err := strconv.ParseInt(arg, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid item id %q", arg)
					}
					ids = append(ids, id)
				}
				if allFailed {
					failed, err := store.ItemsByStatus(cmd.Context(), queue.StatusFailed)
					if err != nil {
						return err
					}
					incomplete, err := store.ItemsByStatus(cmd.Context(), queue.StatusIncomplete)
					if err != nil {
						return err
					}
					for _, item := range append(failed, incomplete...) {
						ids = append(ids, item.ID)
					}
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to retry")
					return nil
				}
				updated, err := store.RetryItem(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d item(s)\n", updated)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&allFailed, "all-failed", false, "Retry every failed and incomplete item")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an item from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("item %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear completed items, or the whole queue with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearAll {
				return fmt.Errorf("--completed and --all are mutually exclusive")
			}
			return ctx.withStore(func(store *queue.Store) error {
				var removed int64
				var err error
				if clearAll {
					removed, err = store.ClearAll(cmd.Context())
				} else {
					removed, err = store.ClearCompleted(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed items (default)")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item regardless of status")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				totals, err := store.AggregateTotals(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(queue.AllStatuses()))
				for _, status := range queue.AllStatuses() {
					if count := stats[status]; count > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintf(out, "Images: %d of %d uploaded\n", totals.UploadedImages, totals.TotalImages)
				fmt.Fprintf(out, "Bytes:  %s of %s uploaded\n",
					humanize.IBytes(uint64(max(totals.UploadedBytes, 0))),
					humanize.IBytes(uint64(max(totals.TotalBytes, 0))))
				return nil
			})
		},
	}
}

func displayGalleryName(item *queue.Item) string {
	if name := strings.TrimSpace(item.GalleryName); name != "" {
		return name
	}
	return filepath.Base(item.FolderPath)
}

func formatItemProgress(item *queue.Item) string {
	switch item.Status {
	case queue.StatusPending:
		return "-"
	case queue.StatusCompleted:
		return fmt.Sprintf("%d images", item.UploadedImages)
	default:
		if item.TotalImages > 0 {
			return fmt.Sprintf("%d/%d", item.UploadedImages, item.TotalImages)
		}
		return "-"
	}
}

func statusNames() string {
	names := make([]string, 0, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
