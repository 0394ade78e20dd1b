package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}

			client := newDavClient(t)
			start := time.Now()

			var opErr error

			await(client.CreateFolder(args[0], t.account, t.password, func(err error) {
				opErr = err
			}))

			recordHistory("mkdir", t, args[0], 0, start, opErr)

			if opErr != nil {
				return opErr
			}

			statusf("created %s\n", args[0])

			return nil
		},
	}
}
