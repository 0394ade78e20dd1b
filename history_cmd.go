package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudpath/webdav-go/internal/config"
	"github.com/cloudpath/webdav-go/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfer operations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := config.DefaultHistoryPath()
			if path == "" {
				return fmt.Errorf("cannot determine history database location")
			}

			ctx := context.Background()

			store, err := history.Open(ctx, path, slog.Default())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Fprintf(os.Stdout, "%s  %-8s  %-24s  %10s  %-8s  %s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Operation,
					e.Account,
					formatSize(e.Bytes),
					e.Duration.Truncate(time.Millisecond),
					e.Path,
				)

				if e.Outcome != "ok" {
					fmt.Fprintf(os.Stdout, "    failed: %s\n", e.Outcome)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of entries to show")

	return cmd
}
