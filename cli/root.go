// Package cli wires the chatpulse commands: analyze a transcript file or a
// stored session, capture live chat, serve the HTTP API and manage the
// database schema.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/onnwee/chatpulse/config"
	"github.com/onnwee/chatpulse/crypto"
	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/livechat"
	"github.com/onnwee/chatpulse/telemetry"
)

var version = "dev"

// app carries what every command shares. The function fields are replaced in
// tests.
type app struct {
	fs     afero.Fs
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg         *config.Config
	stopTracing func()

	connectDB func(ctx context.Context, dsn string) (*sql.DB, error)
	newSource func(ctx context.Context, cfg *config.Config, dbx *sql.DB, wait bool) (liveTarget, error)
}

// liveTarget is a resolved live source plus the session it will stream.
type liveTarget struct {
	src       livechat.Source
	sessionID string
	title     string
}

func newApp(fsys afero.Fs, out, errOut io.Writer) *app {
	a := &app{fs: fsys, out: out, errOut: errOut, connectDB: db.Connect}
	a.newSource = a.liveSource
	return a
}

// Execute runs the root command and returns the process exit code.
func Execute(v string) int {
	if v != "" {
		version = v
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(fsio.OS, os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatpulse: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatpulse",
		Short: "Keyword frequency over time for chat transcripts",
		Long: `chatpulse counts how often keywords appear in a chat transcript per
time window and prints the result as a terminal chart or writes it as CSV.

Transcripts are plain text, one message per line:
  [2023-01-01 10:00:00] author: message

Live YouTube and Twitch chat can be captured into that format, stored in
Postgres, and analysed over the HTTP API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default $CHATPULSE_CONFIG)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (default $LOG_LEVEL or info)")
	pf.StringVar(&a.logFormat, "log-format", "", "text|json (default $LOG_FORMAT or text)")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newCaptureCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// setup runs before every command: .env, logging, config, metrics and
// tracing, then the banner.
func (a *app) setup(cmd *cobra.Command) error {
	// local dev convenience only; real env always wins
	_ = godotenv.Load()

	a.configureLogging()

	path := a.configPath
	if path == "" {
		path = os.Getenv("CHATPULSE_CONFIG")
	}
	cfg, err := config.LoadFile(a.fs, path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("chatpulse", version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.stopTracing = shutdown

	slog.Info(strings.Repeat("~", 24))
	slog.Info("chatpulse "+version, slog.String("command", cmd.Name()))
	slog.Info(strings.Repeat("~", 24))
	return nil
}

func (a *app) shutdown() {
	if a.stopTracing != nil {
		a.stopTracing()
		a.stopTracing = nil
	}
}

// openDB connects to the configured database and applies migrations.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	dbx, err := a.connectDB(ctx, a.cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(ctx, dbx); err != nil {
		_ = dbx.Close()
		return nil, err
	}
	return dbx, nil
}

func closeDB(dbx *sql.DB) {
	if dbx == nil {
		return
	}
	if err := dbx.Close(); err != nil {
		slog.Error("failed to close database", slog.Any("err", err))
	}
}

// tokenStore returns the OAuth token store, sealing tokens when
// TOKEN_ENCRYPTION_KEY is set.
func (a *app) tokenStore(dbx *sql.DB) (*db.TokenStoreAdapter, error) {
	ts := &db.TokenStoreAdapter{DB: dbx}
	if a.cfg.TokenEncryptionKey == "" {
		return ts, nil
	}
	s, err := crypto.NewSealer(a.cfg.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", err)
	}
	ts.Sealer = s
	return ts, nil
}
