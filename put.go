package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudpath/webdav-go/internal/dav"
)

// watchDebounce coalesces bursts of filesystem events (editors write,
// truncate, and rename in quick succession) into one upload.
const watchDebounce = 500 * time.Millisecond

func newPutCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "put <local>... <remote>",
		Short: "Upload files to the server",
		Long: `Upload one or more local files. With multiple local files the remote
path is treated as a directory and each file keeps its base name.
With --watch, a single file is re-uploaded whenever it changes.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}

			locals := args[:len(args)-1]
			remote := args[len(args)-1]
			client := newDavClient(t)

			if watch {
				if len(locals) != 1 {
					return errors.New("--watch takes exactly one local file")
				}

				return watchAndUpload(client, t, locals[0], remotePathFor(locals[0], remote, false))
			}

			multi := len(locals) > 1

			var g errgroup.Group

			g.SetLimit(transferParallelism)

			for _, local := range locals {
				local := local
				g.Go(func() error {
					return uploadOne(client, t, local, remotePathFor(local, remote, multi))
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "re-upload the file whenever it changes")

	return cmd
}

// remotePathFor maps a local file onto its remote path. A remote ending
// in "/" (or a multi-file upload) is a directory target and keeps the
// local base name.
func remotePathFor(local, remote string, multi bool) string {
	if multi || remote == "" || remote[len(remote)-1] == '/' {
		return path.Join(remote, filepath.Base(local))
	}

	return remote
}

// uploadOne streams one local file to the server.
func uploadOne(client *dav.Client, t *target, local, remote string) error {
	info, err := os.Stat(local)
	if err != nil {
		return fmt.Errorf("reading %s: %w", local, err)
	}

	start := time.Now()

	var opErr error

	await(client.UploadFile(local, remote, t.account, t.password, func(err error) {
		opErr = err
	}))

	recordHistory("upload", t, remote, info.Size(), start, opErr)

	if opErr != nil {
		return fmt.Errorf("uploading %s: %w", local, opErr)
	}

	statusf("uploaded %s (%s)\n", remote, formatSize(info.Size()))

	return nil
}

// watchAndUpload uploads local once, then re-uploads it after every
// change until interrupted. Editors commonly replace files instead of
// rewriting them, so create and rename events count as changes too.
func watchAndUpload(client *dav.Client, t *target, local, remote string) error {
	if err := uploadOne(client, t, local, remote); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: rename-and-replace saves drop
	// the watch on the old inode.
	dir := filepath.Dir(local)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	statusf("watching %s\n", local)

	base := filepath.Base(local)

	var timer *time.Timer

	pending := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != base {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			if err := uploadOne(client, t, local, remote); err != nil {
				slog.Error("re-upload failed", slog.String("error", err.Error()))
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("watch error", slog.String("error", watchErr.Error()))
		}
	}
}
