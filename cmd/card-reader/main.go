package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/card-reader/internal/capture"
	"github.com/zombor/card-reader/internal/card"
	"github.com/zombor/card-reader/internal/reader"
	"github.com/zombor/card-reader/internal/scanning"
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

	fs := ff.NewFlagSet("card-reader")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "card-reader.db", "Session log database file path")
		recognizerType = fs.StringLong("recognizer", "gemini", "Text recognizer: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		retryLimit     = fs.IntLong("retry-limit", card.DefaultRetryLimit, "Frames to wait for an expiration date before emitting without one")
		framesDir      = fs.StringLong("frames", "", "Read a card from a directory of frame images instead of serving the API")
		frameInterval  = fs.DurationLong("frame-interval", 100*time.Millisecond, "Delay between frames in --frames mode")
		loop           = fs.BoolLong("loop", "Replay the frames and keep reading cards until interrupted")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CARD_READER"),
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

	// Initialize recognizer based on type
	var recognizer scanning.Recognizer
	var err error
	switch *recognizerType {
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
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer recognizer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *framesDir != "" {
		if err := readCard(ctx, *framesDir, *frameInterval, *loop, *retryLimit, recognizer); err != nil {
			recognizer.Close()
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := reader.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize service
	readerService := reader.NewService(db, recognizer, *retryLimit)
	defer readerService.Close()

	// Initialize server
	basicAuth := reader.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := reader.NewServer(readerService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	slog.Info("Shutting down...")
}

// readCard runs a capture pipeline over a directory of frames and prints each
// record as JSON. Without loop it stops after the first card.
func readCard(ctx context.Context, dir string, interval time.Duration, loop bool, retryLimit int, recognizer scanning.Recognizer) error {
	source := capture.NewDirectorySource(dir,
		capture.WithInterval(interval),
		capture.WithLoop(loop),
	)

	var pipeline *capture.Pipeline
	encoder := json.NewEncoder(os.Stdout)
	emitted := false
	pipeline = capture.New(source, recognizer, func(record card.Record, resume card.Resume) {
		emitted = true
		expiration, _ := record.ExpirationDisplayString()
		slog.Info("Card read", "number", record.MaskedNumber(), "expiration", expiration)
		if err := encoder.Encode(record); err != nil {
			slog.Error("Error encoding record", "error", err)
		}
		if loop {
			resume()
			return
		}
		pipeline.Stop()
	}, capture.WithRetryLimit(retryLimit))

	err := pipeline.Run(ctx)
	switch {
	case card.IsCameraPermission(err):
		slog.Error("Camera access was not granted", "error", err)
		return err
	case card.IsCameraInitialization(err):
		slog.Error("Camera could not be started", "error", err)
		return err
	case err != nil:
		slog.Error("Capture failed", "error", err)
		return err
	}

	if !emitted {
		slog.Warn("No card was read", "frames", dir)
	}
	return nil
}
