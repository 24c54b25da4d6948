package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"google.golang.org/api/option"

	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/backend"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/bot"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/extraction"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/fingerprint"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/ledger"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/receipt"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Local development keeps credentials in a .env file.
	godotenv.Load()

	fs := ff.NewFlagSet("fluxo-cash-bot")
	var (
		token         = fs.StringLong("telegram-token", "", "Telegram bot token (or set FLUXO_CASH_TELEGRAM_TOKEN)")
		backendURL    = fs.StringLong("backend-url", "https://new-bot-nader-production.up.railway.app", "Backend base URL")
		dbPath        = fs.StringLong("db", "fluxo-cash.db", "Receipt database file path")
		printsPath    = fs.StringLong("fingerprint-db", "fingerprints.db", "Fingerprint database file path")
		archivePath   = fs.StringLong("archive", "./comprovantes", "Directory for archived receipt files")
		threshold     = fs.IntLong("phash-threshold", fingerprint.DefaultThreshold, "Maximum perceptual hash distance for a duplicate")
		extractorType = fs.StringLong("extractor", "gemini", "OCR extractor: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		sheetID       = fs.StringLong("sheet-id", "", "Google Sheets spreadsheet ID for the ledger (optional)")
		sheetRange    = fs.StringLong("sheet-range", "Comprovantes!A:H", "Ledger sheet range")
		sheetCreds    = fs.StringLong("sheet-credentials", "", "Path to Google service-account credentials JSON")
		pixKey        = fs.StringLong("pix-key", "", "Default PIX key for /pix charges")
		pixName       = fs.StringLong("pix-name", "Fluxo Cash", "Merchant name for /pix charges")
		pixCity       = fs.StringLong("pix-city", "Sao Paulo", "Merchant city for /pix charges")
		webhookURL    = fs.StringLong("webhook-url", "", "Public webhook URL (empty for long polling)")
		webhookListen = fs.StringLong("webhook-listen", ":8080", "Webhook listen address")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FLUXO_CASH"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	botToken := *token
	if botToken == "" {
		botToken = os.Getenv("TELEGRAM_TOKEN")
	}
	if botToken == "" {
		slog.Error("Telegram token is required. Set --telegram-token flag or TELEGRAM_TOKEN environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing fingerprint store...")
	prints, err := fingerprint.NewBoltStore(*printsPath)
	if err != nil {
		slog.Error("Failed to initialize fingerprint store", "error", err)
		os.Exit(1)
	}
	defer prints.Close()

	slog.Info("Initializing receipt database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize receipt database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var ocr extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		ocr, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		ocr, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	extractor := extraction.NewHybrid(extraction.PDFText{}, ocr)
	defer extractor.Close()

	slog.Info("Initializing archive storage...")
	storage, err := receipt.NewLocalStorage(*archivePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ldg ledger.Ledger
	if *sheetID != "" {
		slog.Info("Initializing spreadsheet ledger...", "sheet_id", *sheetID)
		var opts []option.ClientOption
		if *sheetCreds != "" {
			opts = append(opts, option.WithCredentialsFile(*sheetCreds))
		}
		ldg, err = ledger.NewSheets(ctx, *sheetID, *sheetRange, opts...)
		if err != nil {
			slog.Error("Failed to initialize ledger", "error", err)
			os.Exit(1)
		}
	}

	dedup := fingerprint.NewDeduplicator(extractor, fingerprint.PHasher{}, *threshold)
	uploader := backend.NewClient(*backendURL)
	service := receipt.NewService(dedup, prints, db, storage, uploader, ldg)

	tgBot, err := bot.New(bot.Config{
		Token:   botToken,
		PixKey:  *pixKey,
		PixName: *pixName,
		PixCity: *pixCity,
	}, service)
	if err != nil {
		slog.Error("Failed to initialize bot", "error", err)
		os.Exit(1)
	}

	slog.Info("Bot ready",
		"version", version,
		"backend", *backendURL,
		"phash_threshold", *threshold,
	)

	if *webhookURL != "" {
		if err := tgBot.StartWebhook(ctx, *webhookURL, *webhookListen); err != nil {
			slog.Error("Webhook server error", "error", err)
			os.Exit(1)
		}
	} else {
		tgBot.StartPolling(ctx)
	}

	slog.Info("Shutting down...")
}
