package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/history"
	"github.com/zombor/billed/internal/logger"
	"github.com/zombor/billed/internal/store"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("billed-history")
	var (
		email       = fs.StringLong("email", "", "Employee email (all bills when empty; required with --remote-url)")
		dbPath      = fs.StringLong("db", "billed.db", "Database file path")
		remoteURL   = fs.StringLong("remote-url", "", "Read bills from the JSON API of a Billed server instead of the database")
		remoteUser  = fs.StringLong("remote-user", "", "Basic auth username for the remote server")
		remotePass  = fs.StringLong("remote-pass", "", "Basic auth password for the remote server")
		format      = fs.StringLong("format", "text", "Output format: text or json")
		timeout     = fs.DurationLong("timeout", 30*time.Second, "How long to wait for the bills")
		logLevel    = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	write := history.WriteText
	switch *format {
	case "text":
	case "json":
		write = history.WriteJSON
	default:
		fmt.Fprintf(os.Stderr, "error: unknown format %q\n", *format)
		os.Exit(1)
	}

	// Logs go to stderr so the report can be piped
	slog.SetDefault(logger.New(logger.Config{Level: *logLevel}, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var lister history.Lister
	if *remoteURL != "" {
		slog.Info("Using remote store", "url", *remoteURL)
		client, err := store.NewClient(*remoteURL, store.WithBasicAuth(*remoteUser, *remotePass))
		if err != nil {
			slog.Error("Failed to initialize remote store", "error", err)
			os.Exit(1)
		}
		lister = client
	} else {
		db, err := bill.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to open database", "error", err, "hint", "use --remote-url while the server holds the database")
			os.Exit(1)
		}
		defer db.Close()
		// Listing never touches receipt files
		lister = bill.NewService(db, nil)
	}

	report, err := history.Load(ctx, lister, *email)
	if err != nil {
		slog.Error("Failed to load bills", "error", err)
		os.Exit(1)
	}
	if err := write(os.Stdout, report); err != nil {
		slog.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
}
