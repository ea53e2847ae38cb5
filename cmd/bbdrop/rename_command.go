package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bbdrop/internal/rename"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var flush bool
	var hostFlag string

	cmd := &cobra.Command{
		Use:   "rename [gallery-id] [name]",
		Short: "Manage pending gallery renames",
		Long: `Gallery renames that could not be applied during an upload are parked in a
ledger. Run with --flush to retry them all, or pass a gallery id and name to
queue a specific rename and apply it immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			ledger, err := rename.OpenLedger(cfg.RenameLedgerPath())
			if err != nil {
				return err
			}
			defer ledger.Close()

			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if !flush {
					return listPendingRenames(out, ledger)
				}
				return flushPendingRenames(cmd, ctx, ledger)
			}

			if len(args) != 2 {
				return fmt.Errorf("expected <gallery-id> <name>, got %d argument(s)", len(args))
			}

			host := hostFlag
			if host == "" {
				host = cfg.Upload.DefaultHost
			}
			entry := rename.Entry{Host: host, GalleryID: args[0], GalleryName: args[1]}
			if err := ledger.Put(entry); err != nil {
				return err
			}
			return flushPendingRenames(cmd, ctx, ledger)
		},
	}

	cmd.Flags().BoolVar(&flush, "flush", false, "Retry every pending rename now")
	cmd.Flags().StringVar(&hostFlag, "host", "", "Image host id for the gallery (defaults to upload.default_host)")
	return cmd
}

func listPendingRenames(out io.Writer, ledger *rename.Ledger) error {
	entries, err := ledger.Pending()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No pending renames")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Host,
			entry.GalleryID,
			entry.GalleryName,
			fmt.Sprintf("%d", entry.Attempts),
			entry.LastError,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Host", "Gallery", "Name", "Attempts", "Last Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(out, "Run `bbdrop rename --flush` to retry them")
	return nil
}

func flushPendingRenames(cmd *cobra.Command, ctx *commandContext, ledger *rename.Ledger) error {
	hosts, err := ctx.hostRegistry()
	if err != nil {
		return err
	}
	service := rename.NewService(hosts, ledger, ctx.cliLogger())
	renamed, remaining, err := service.ProcessPending(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if renamed == 0 && remaining == 0 {
		fmt.Fprintln(out, "No pending renames")
		return nil
	}
	fmt.Fprintf(out, "Renamed %d gallery(ies); %d still pending\n", renamed, remaining)
	return nil
}
