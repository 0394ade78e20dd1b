package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}

			client := newDavClient(t)
			start := time.Now()

			var opErr error

			await(client.DeleteFile(args[0], t.account, t.password, func(err error) {
				opErr = err
			}))

			recordHistory("delete", t, args[0], 0, start, opErr)

			if opErr != nil {
				return opErr
			}

			statusf("deleted %s\n", args[0])

			return nil
		},
	}
}
