package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/sheetsync/pkg/auth"
	"github.com/harrisonrobin/sheetsync/pkg/cache"
	"github.com/harrisonrobin/sheetsync/pkg/config"
	"github.com/harrisonrobin/sheetsync/pkg/google"
	"github.com/harrisonrobin/sheetsync/pkg/logging"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"github.com/harrisonrobin/sheetsync/pkg/server"
	"github.com/harrisonrobin/sheetsync/pkg/syncer"
	"github.com/harrisonrobin/sheetsync/pkg/table"
	"github.com/harrisonrobin/sheetsync/pkg/transport"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "sheetsync",
		Short:        "Sync timer records with a Google Sheet",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/sheetsync/config.json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(newAuthCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newWriteCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newCalendarCommand(opts))
	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// app is everything a command needs, built from config.
type app struct {
	cfg    *config.Config
	client *syncer.Client
	cache  *cache.Cache
	logger *slog.Logger
}

func (a *app) Close() error {
	return a.cache.Close()
}

func loadApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	store, err := openStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	localCache := cache.New(store)

	var (
		source table.Source
		pinger syncer.Pinger
	)
	sheetsClient, err := google.NewClient(ctx, cfg.SpreadsheetID, cfg.APIKey)
	if err != nil {
		logger.Warn("sheet client unavailable, reads will use the local cache", "error", err)
		source = table.Unavailable(fmt.Errorf("%w: %w", model.ErrRemoteUnavailable, err))
	} else {
		source = sheetsClient
		pinger = sheetsClient
	}

	httpClient := newHTTPClient(cfg.HTTPTimeout.Duration)
	cascade := transport.NewCascade(logger,
		&transport.OpaquePost{URL: cfg.WebAppURL, Client: httpClient},
		&transport.FormPost{URL: cfg.WebAppURL, Client: httpClient},
		&transport.Callback{URL: cfg.WebAppURL, Client: httpClient, Timeout: cfg.CallbackTimeout.Duration},
	)

	client := syncer.New(table.NewFetcher(source, logger), localCache, cascade, syncer.Options{
		TimerRange:    cfg.TimerRange(),
		CalendarRange: cfg.CalendarRange(),
		TimerSheet:    cfg.TimerSheet,
		Pinger:        pinger,
		Logger:        logger,
	})

	return &app{cfg: cfg, client: client, cache: localCache, logger: logger}, nil
}

func openStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return cache.OpenSQLite(cfg.Path)
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		return cache.NewFileStore(cfg.Path)
	}
}

func withApp(opts *rootOptions, fn func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a)
	}
}

func newAuthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenFile, err := auth.ResetToken()
			if err != nil {
				return err
			}
			if _, err := auth.GetSheetsService(cmd.Context(), ""); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", tokenFile)
			return nil
		},
	}
}

func newReadCommand(opts *rootOptions) *cobra.Command {
	var user string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "List timer records, newest first",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			records := a.client.Records(ctx, user)
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), records)
			}
			return printRecords(cmd.OutOrStdout(), records)
		}),
	}
	cmd.Flags().StringVar(&user, "user", "", "only records of this user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newWriteCommand(opts *rootOptions) *cobra.Command {
	var user string
	var seconds int

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Record a finished timer session",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			if seconds < 0 {
				return fmt.Errorf("--seconds must not be negative")
			}
			res := a.client.Write(ctx, model.NewTimerRecord(user, seconds, time.Now()))
			return encodeJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().StringVar(&user, "user", "", "user the session belongs to")
	cmd.Flags().IntVar(&seconds, "seconds", 0, "session length in seconds")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Write JSON timer records read from stdin",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			records, err := model.DecodeRecords(cmd.InOrStdin())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if rec.Timestamp == "" {
					stamped := model.NewTimerRecord(rec.User, rec.TotalSeconds, time.Now())
					rec.Timestamp, rec.LastUpdated = stamped.Timestamp, stamped.LastUpdated
				}
				if err := enc.Encode(a.client.Write(ctx, rec)); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newCalendarCommand(opts *rootOptions) *cobra.Command {
	var row int
	var date string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the week calendar and its notes",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			res := a.client.Calendar(ctx)
			if !res.Success {
				return fmt.Errorf("calendar unavailable: %s: %s", res.ErrorKind, res.Detail)
			}
			if date != "" {
				notes, ok := table.NotesForDate(res, row, date)
				if !ok {
					return fmt.Errorf("date %s not found in row %d", date, row)
				}
				return encodeJSON(cmd.OutOrStdout(), notes)
			}
			if row >= 0 {
				return encodeJSON(cmd.OutOrStdout(), table.AllDatesWithNotes(res, row))
			}
			return encodeJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().IntVar(&row, "row", -1, "data row to inspect (0-based); -1 prints the whole table")
	cmd.Flags().StringVar(&date, "date", "", "find the notes for this date in --row")
	return cmd
}

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to the timer sheet",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			n, err := a.client.Ping(ctx)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection successful (%d rows)\n", n)
			return nil
		}),
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: withApp(opts, func(ctx context.Context, cmd *cobra.Command, a *app) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			return server.New(a.client, a.logger).ListenAndServe(ctx, addr)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(w io.Writer, records []model.TimerRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tUSER\tSECONDS\tTIME\tLAST UPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Timestamp, r.User, strconv.Itoa(r.TotalSeconds), r.FormattedTime, r.LastUpdated)
	}
	return tw.Flush()
}
