package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudpath/webdav-go/internal/dav"
)

// transferParallelism bounds concurrent transfers in multi-file get/put.
const transferParallelism = 4

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <remote>... [local]",
		Short: "Download files from the server",
		Long: `Download one or more remote files. With a single remote path the last
argument may name the local destination; otherwise files land in the
current directory under their remote base names.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}

			remotes := args
			local := ""

			if len(args) == 2 {
				if _, statErr := os.Stat(args[1]); statErr == nil || looksLocal(args[1]) {
					remotes = args[:1]
					local = args[1]
				}
			}

			client := newDavClient(t)

			var g errgroup.Group

			g.SetLimit(transferParallelism)

			for _, remote := range remotes {
				remote := remote
				g.Go(func() error {
					dest := local
					if dest == "" {
						dest = path.Base(remote)
					}

					return downloadOne(client, t, remote, dest)
				})
			}

			return g.Wait()
		},
	}

	return cmd
}

// looksLocal reports whether arg names a plausible local destination
// rather than another remote path: an existing directory or an
// explicitly relative/absolute filesystem path.
func looksLocal(arg string) bool {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return true
	}

	return filepath.IsAbs(arg) || arg == "." || arg[0] == '.'
}

// downloadOne fetches a single remote file and writes it to dest.
func downloadOne(client *dav.Client, t *target, remote, dest string) error {
	start := time.Now()

	var (
		data  []byte
		opErr error
	)

	await(client.Download(remote, t.account, t.password, func(b []byte, err error) {
		data = b
		opErr = err
	}))

	recordHistory("download", t, remote, int64(len(data)), start, opErr)

	if opErr != nil {
		return fmt.Errorf("downloading %s: %w", remote, opErr)
	}

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, path.Base(remote))
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	statusf("downloaded %s (%s)\n", remote, formatSize(int64(len(data))))

	return nil
}
