package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudpath/webdav-go/internal/dav"
)

func newLsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			t, err := resolveTarget()
			if err != nil {
				return err
			}

			client := newDavClient(t)
			start := time.Now()

			var (
				records []dav.FileRecord
				opErr   error
			)

			await(client.ListFiles(path, t.account, t.password, func(recs []dav.FileRecord, err error) {
				records = recs
				opErr = err
			}))

			recordHistory("list", t, path, 0, start, opErr)

			if opErr != nil {
				return opErr
			}

			printListing(records, long || stdoutIsTerminal())

			return nil
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "long listing even when piped")

	return cmd
}

// printListing writes records to stdout: one detailed row per record in
// long mode, bare paths otherwise.
func printListing(records []dav.FileRecord, long bool) {
	for _, rec := range records {
		if !long {
			fmt.Fprintln(os.Stdout, rec.Path)

			continue
		}

		kind := "-"
		if rec.IsDirectory {
			kind = "d"
		}

		fmt.Fprintf(os.Stdout, "%s %10s  %s  %s\n",
			kind, formatSize(rec.Size), formatTime(rec.LastModified), rec.Path)
	}
}
