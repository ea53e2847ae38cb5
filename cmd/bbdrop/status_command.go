package main

import (
	"fmt"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"bbdrop/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon liveness and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			// If the daemon holds the instance lock, TryLock fails.
			instanceLock := flock.New(cfg.LockFilePath())
			locked, lockErr := instanceLock.TryLock()
			switch {
			case lockErr != nil:
				fmt.Fprintf(out, "Daemon:  unknown (lock probe failed: %v)\n", lockErr)
			case locked:
				instanceLock.Unlock() //nolint:errcheck
				fmt.Fprintln(out, "Daemon:  not running")
			default:
				fmt.Fprintln(out, "Daemon:  running")
			}

			return ctx.withStore(func(store *queue.Store) error {
				dbHealth, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if dbHealth.Error != "" {
					fmt.Fprintf(out, "Queue DB: %s (%s)\n", dbHealth.DBPath, dbHealth.Error)
					return nil
				}
				fmt.Fprintf(out, "Queue DB: %s (%d items)\n", dbHealth.DBPath, dbHealth.TotalItems)

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"uploading", strconv.Itoa(summary.Uploading)},
					{"completed", strconv.Itoa(summary.Completed)},
					{"incomplete", strconv.Itoa(summary.Incomplete)},
					{"failed", strconv.Itoa(summary.Failed)},
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
