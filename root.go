package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudpath/webdav-go/internal/config"
	"github.com/cloudpath/webdav-go/internal/dav"
	"github.com/cloudpath/webdav-go/internal/history"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagAccount     string
	flagURL         string
	flagUser        string
	flagPasswordEnv string
	flagInsecure    bool
	flagVerbose     bool
	flagQuiet       bool
)

// loadedCfg holds the configuration loaded by PersistentPreRunE.
var loadedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webdav-go",
		Short:   "WebDAV command line client",
		Long:    "A WebDAV client for listing, transferring, and managing files on any WebDAV server.",
		Version: version,
		// Error printing is handled in main, not by cobra.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			path := flagConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}

			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			loadedCfg = cfg
			slog.SetDefault(buildLogger())

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagAccount, "account", "", "named account from the config file")
	cmd.PersistentFlags().StringVar(&flagURL, "url", "", "server URL (overrides config accounts)")
	cmd.PersistentFlags().StringVar(&flagUser, "user", "", "username for --url")
	cmd.PersistentFlags().StringVar(&flagPasswordEnv, "password-env", "", "environment variable holding the password for --url")
	cmd.PersistentFlags().BoolVar(&flagInsecure, "insecure", false, "accept any server certificate")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// buildLogger creates an slog.Logger from the loaded config and CLI
// flags. The config file log level is the baseline; --verbose and
// --quiet override it.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if loadedCfg != nil {
		switch loadedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// target is the resolved server endpoint a command operates on.
type target struct {
	account  dav.BasicAccount
	password string
	insecure bool
}

// label returns the account identifier recorded in the history ledger.
func (t *target) label() string {
	host := t.account.ServerURL
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}

	return t.account.User + "@" + host
}

// resolveTarget builds the target from --url/--user/--password-env, or
// from the named (or sole) config account when --url is absent.
func resolveTarget() (*target, error) {
	if flagURL != "" {
		pw := ""
		if flagPasswordEnv != "" {
			var ok bool

			pw, ok = os.LookupEnv(flagPasswordEnv)
			if !ok {
				return nil, fmt.Errorf("environment variable %s is not set", flagPasswordEnv)
			}
		}

		return &target{
			account:  dav.BasicAccount{ServerURL: flagURL, User: flagUser},
			password: pw,
			insecure: flagInsecure,
		}, nil
	}

	acct, err := loadedCfg.Account(flagAccount)
	if err != nil {
		return nil, err
	}

	pw, err := acct.Password()
	if err != nil {
		return nil, err
	}

	return &target{
		account:  dav.BasicAccount{ServerURL: acct.URL, User: acct.Username},
		password: pw,
		insecure: acct.Insecure || flagInsecure,
	}, nil
}

// newDavClient builds the dav.Client for a target. An insecure target
// gets a trust decider that accepts any certificate; everything else
// uses standard verification.
func newDavClient(t *target) *dav.Client {
	var trust dav.TrustDecider
	if t.insecure {
		trust = dav.AcceptAnyCertificate
	}

	return dav.NewClient(trust, slog.Default())
}

// await blocks until the operation resolves, cancelling it if the
// process receives an interrupt first.
func await(h *dav.Handle) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		h.Cancel()
	}()

	h.Wait()
}

// recordHistory appends one completed operation to the history ledger.
// Ledger failures are logged and otherwise ignored.
func recordHistory(op string, t *target, path string, bytes int64, start time.Time, opErr error) {
	dbPath := config.DefaultHistoryPath()
	if dbPath == "" {
		return
	}

	ctx := context.Background()

	store, err := history.Open(ctx, dbPath, slog.Default())
	if err != nil {
		slog.Warn("history unavailable", slog.String("error", err.Error()))

		return
	}
	defer store.Close()

	outcome := "ok"
	if opErr != nil {
		outcome = opErr.Error()
	}

	entry := history.Entry{
		Operation: op,
		Account:   t.label(),
		Path:      path,
		Bytes:     bytes,
		Duration:  time.Since(start),
		Outcome:   outcome,
	}

	if err := store.Record(ctx, entry); err != nil {
		slog.Warn("recording history failed", slog.String("error", err.Error()))
	}
}
