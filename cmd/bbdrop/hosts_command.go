package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHostsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List configured image hosts and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.hostRegistry()
			if err != nil {
				return err
			}

			ids := registry.IDs()
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				client, err := registry.Get(id)
				if err != nil {
					continue
				}
				caps := client.Capabilities()
				maxSize := "unlimited"
				if caps.MaxFileSizeMB > 0 {
					maxSize = strconv.Itoa(caps.MaxFileSizeMB) + " MB"
				}
				rows = append(rows, []string{
					id,
					client.WebURL(),
					maxSize,
					yesNo(caps.SupportsRename),
					defaultMarker(cfg.Upload.DefaultHost, id),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Host", "URL", "Max File", "Rename", "Default"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func defaultMarker(defaultHost, id string) string {
	if defaultHost == id {
		return "*"
	}
	return ""
}
