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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/logger"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/server"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file in the working directory feeds the BILLED_ variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("billed")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "billed.db", "Database file path")
		storageKind   = fs.StringLong("storage-backend", "local", "Receipt storage: 'local' or 'minio'")
		storagePath   = fs.StringLong("storage", "./receipts", "Receipt storage directory path")
		minioEndpoint = fs.StringLong("minio-endpoint", "localhost:9000", "MinIO/S3 endpoint (host:port)")
		minioBucket   = fs.StringLong("minio-bucket", "receipts", "MinIO/S3 bucket for receipts")
		minioAccess   = fs.StringLong("minio-access-key", "", "MinIO/S3 access key")
		minioSecret   = fs.StringLong("minio-secret-key", "", "MinIO/S3 secret key")
		minioRegion   = fs.StringLong("minio-region", "us-east-1", "MinIO/S3 region")
		minioSSL      = fs.BoolLong("minio-ssl", "Connect to MinIO/S3 over HTTPS")
		remoteURL     = fs.StringLong("remote-url", "", "Use the JSON API of another Billed server instead of the local database")
		remoteUser    = fs.StringLong("remote-user", "", "Basic auth username for the remote server")
		remotePass    = fs.StringLong("remote-pass", "", "Basic auth password for the remote server")
		sessionSecret = fs.StringLong("session-secret", "", "Secret signing session cookies (random per process when empty)")
		sessionTTL    = fs.DurationLong("session-ttl", 24*time.Hour, "Session lifetime")
		secureCookies = fs.BoolLong("secure-cookies", "Mark session cookies Secure (serve over HTTPS)")
		fetchTimeout  = fs.DurationLong("fetch-timeout", 10*time.Second, "How long to wait for bills before showing the loading page")
		scannerType   = fs.StringLong("scanner", "none", "Receipt scanner prefilling the bill form: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional, required for the JSON API)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat     = fs.StringLong("log-format", "text", "Log format: text or json")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger.Init(logger.Config{Level: *logLevel, Format: *logFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		BasicAuth: server.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
		FetchTimeout:  *fetchTimeout,
		SecureCookies: *secureCookies,
	}

	// Initialize the bill store
	var billStore bill.Store
	if *remoteURL != "" {
		slog.Info("Using remote store", "url", *remoteURL)
		client, err := store.NewClient(*remoteURL, store.WithBasicAuth(*remoteUser, *remotePass))
		if err != nil {
			slog.Error("Failed to initialize remote store", "error", err)
			os.Exit(1)
		}
		billStore = client
	} else {
		slog.Info("Initializing database...")
		db, err := bill.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		slog.Info("Initializing storage...", "backend", *storageKind)
		var storage bill.Storage
		switch *storageKind {
		case "local":
			storage, err = bill.NewLocalStorage(*storagePath)
		case "minio":
			var minioStorage *bill.MinioStorage
			minioStorage, err = bill.NewMinioStorage(bill.MinioConfig{
				Endpoint:  *minioEndpoint,
				AccessKey: *minioAccess,
				SecretKey: *minioSecret,
				Bucket:    *minioBucket,
				Region:    *minioRegion,
				UseSSL:    *minioSSL,
			})
			if err == nil {
				err = minioStorage.EnsureBucket(ctx)
			}
			storage = minioStorage
		default:
			err = fmt.Errorf("unknown storage backend %q", *storageKind)
		}
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}

		service := bill.NewService(db, storage)
		billStore = service
		opts.Files = service
	}

	// Initialize scanner based on type
	switch *scannerType {
	case "none", "":
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err := scanning.NewGemini(ctx, apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer scanner.Close()
		opts.Scanner = scanner
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		defer scanner.Close()
		opts.Scanner = scanner
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "none, gemini or ollama")
		os.Exit(1)
	}

	secret := *sessionSecret
	if secret == "" {
		slog.Warn("No session secret set; sessions will not survive a restart")
		secret = uuid.NewString()
	}
	issuer, err := session.NewIssuer(secret, *sessionTTL)
	if err != nil {
		slog.Error("Failed to initialize sessions", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(billStore, issuer, opts)

	addr := fmt.Sprintf(":%d", *port)
	if srv.APIEnabled() {
		slog.Info("Basic auth enabled", "user", *authUser)
	} else {
		slog.Info("JSON API disabled; set --auth-user and --auth-pass to serve remote stores")
	}
	if err := srv.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
