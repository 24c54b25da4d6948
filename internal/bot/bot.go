// Package bot is the Telegram transport: it receives receipt photos and
// PDFs, hands them to the receipt service and reports the outcome with
// reactions and replies.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/backend"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/fingerprint"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/pix"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/receipt"
)

// Processor is the receipt pipeline consumed by the transport.
type Processor interface {
	Process(ctx context.Context, sub receipt.Submission) (*receipt.Result, error)
}

// Config holds transport settings.
type Config struct {
	Token string

	// Merchant identity for /pix charge generation.
	PixKey  string
	PixName string
	PixCity string
}

// Bot wires Telegram updates to the receipt service.
type Bot struct {
	api     *tg.Bot
	service Processor
	cfg     Config
	client  *http.Client
}

// New creates the bot and registers its handlers.
func New(cfg Config, service Processor) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	b := &Bot{
		service: service,
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
	}

	api, err := tg.New(cfg.Token, tg.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	b.api = api

	api.RegisterHandler(tg.HandlerTypeMessageText, "start", tg.MatchTypeCommand, b.handleStart)
	api.RegisterHandler(tg.HandlerTypeMessageText, "help", tg.MatchTypeCommand, b.handleHelp)
	api.RegisterHandler(tg.HandlerTypeMessageText, "id", tg.MatchTypeCommand, b.handleID)
	api.RegisterHandler(tg.HandlerTypeMessageText, "pix", tg.MatchTypeCommand, b.handleCharge)

	return b, nil
}

// StartPolling runs the long-polling loop until the context is canceled.
func (b *Bot) StartPolling(ctx context.Context) {
	slog.Info("starting telegram polling")
	b.api.Start(ctx)
}

// StartWebhook registers the webhook with Telegram and serves updates on
// listenAddr until the context is canceled.
func (b *Bot) StartWebhook(ctx context.Context, publicURL, listenAddr string) error {
	if _, err := b.api.SetWebhook(ctx, &tg.SetWebhookParams{URL: publicURL}); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}

	go b.api.StartWebhook(ctx)

	srv := &http.Server{Addr: listenAddr, Handler: b.api.WebhookHandler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting telegram webhook server", "address", listenAddr, "url", publicURL)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (b *Bot) handleStart(ctx context.Context, api *tg.Bot, update *models.Update) {
	msg := update.Message
	if isGroupChat(msg) {
		// No welcome spam in groups.
		slog.Info("/start in group", "user_id", msg.From.ID)
		return
	}
	b.send(ctx, msg.Chat.ID, welcomeText(msg.From.ID))
	slog.Info("/start in private", "user_id", msg.From.ID, "name", msg.From.FirstName)
}

func (b *Bot) handleHelp(ctx context.Context, api *tg.Bot, update *models.Update) {
	b.send(ctx, update.Message.Chat.ID, helpText)
}

func (b *Bot) handleID(ctx context.Context, api *tg.Bot, update *models.Update) {
	msg := update.Message
	b.send(ctx, msg.Chat.ID, idText(msg.From.ID, msg.From.FirstName))
	slog.Info("/id", "user_id", msg.From.ID)
}

// handleCharge generates a PIX charge QR: /pix <chave> [valor].
func (b *Bot) handleCharge(ctx context.Context, api *tg.Bot, update *models.Update) {
	msg := update.Message
	args := strings.Fields(msg.Text)

	key := b.cfg.PixKey
	if len(args) >= 2 {
		key = args[1]
	}
	if key == "" {
		b.send(ctx, msg.Chat.ID, "Uso correto: /pix <chave> [valor]")
		return
	}

	var amountCents int64
	if len(args) >= 3 {
		value, err := pix.ParseAmount(args[2])
		if err != nil {
			b.send(ctx, msg.Chat.ID, "Valor inválido. Use ponto ou vírgula como decimal (ex: 20,50).")
			return
		}
		amountCents = value
	}

	charge, err := pix.NewCharge(key, b.cfg.PixName, b.cfg.PixCity, amountCents)
	if err != nil {
		slog.Error("charge generation failed", "error", err)
		b.send(ctx, msg.Chat.ID, "Erro ao gerar código Pix.")
		return
	}

	_, err = api.SendPhoto(ctx, &tg.SendPhotoParams{
		ChatID: msg.Chat.ID,
		Photo: &models.InputFileUpload{
			Filename: "pix_qrcode.png",
			Data:     bytes.NewReader(charge.QRPNG),
		},
		Caption: chargeCaption(charge.Code),
	})
	if err != nil {
		slog.Error("sending charge QR failed", "error", err)
	}
}

// handleUpdate routes non-command messages: receipt photos and PDF documents.
func (b *Bot) handleUpdate(ctx context.Context, api *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	switch {
	case len(msg.Photo) > 0:
		// Highest resolution is last.
		photo := msg.Photo[len(msg.Photo)-1]
		filename := fmt.Sprintf("comprovante_%d_%d.jpg", msg.From.ID, time.Now().Unix())
		b.processFile(ctx, msg, photo.FileID, filename, "image/jpeg")
	case msg.Document != nil && msg.Document.MimeType == "application/pdf":
		filename := msg.Document.FileName
		if filename == "" {
			filename = "documento.pdf"
		}
		b.processFile(ctx, msg, msg.Document.FileID, filename, "application/pdf")
	case msg.Document != nil:
		slog.Warn("ignoring non-PDF document", "mime_type", msg.Document.MimeType, "user_id", msg.From.ID)
	}
}

func (b *Bot) processFile(ctx context.Context, msg *models.Message, fileID, filename, contentType string) {
	b.react(ctx, msg, "⏳")

	data, err := b.download(ctx, fileID)
	if err != nil {
		slog.Error("file download failed", "file_id", fileID, "user_id", msg.From.ID, "error", err)
		b.react(ctx, msg, "❌")
		return
	}

	slog.Info("receipt received",
		"user_id", msg.From.ID,
		"content_type", contentType,
		"size", len(data),
		"group", isGroupChat(msg),
	)

	result, err := b.service.Process(ctx, receipt.Submission{
		Filename:    filename,
		Data:        data,
		ContentType: contentType,
		UserID:      msg.From.ID,
		UserName:    displayName(msg.From.FirstName, msg.From.Username, msg.From.ID),
	})
	if err != nil {
		b.react(ctx, msg, "❌")
		if errors.Is(err, fingerprint.ErrInvalidReceipt) {
			b.reply(ctx, msg, "❌ Não foi possível ler o arquivo enviado.")
			return
		}
		slog.Error("receipt processing failed", "user_id", msg.From.ID, "error", err)
		b.reply(ctx, msg, "❌ Erro ao processar o comprovante. Tente novamente.")
		return
	}

	b.respond(ctx, msg, result)
}

// respond maps a processing result to the reaction/reply the original bot
// always used: ✅ accepted, 🔁 duplicate, ⚠️ partial, 🚫 unregistered, ❌ error.
func (b *Bot) respond(ctx context.Context, msg *models.Message, result *receipt.Result) {
	if result.Verdict.IsDuplicate() {
		b.react(ctx, msg, "🔁")
		b.reply(ctx, msg, duplicateReply(result.Verdict))
		return
	}

	switch {
	case len(result.Processed) > 0 && len(result.Failed) == 0:
		b.react(ctx, msg, "✅")
		for _, p := range result.Processed {
			b.reply(ctx, msg, processedReply(p.Value))
		}
	case len(result.Processed) > 0:
		b.react(ctx, msg, "⚠️")
		for _, p := range result.Processed {
			b.reply(ctx, msg, processedReply(p.Value))
		}
		for _, f := range result.Failed {
			if backend.IsClientNotFound(f.Message()) {
				b.reply(ctx, msg, whitelistReply(msg.From.ID))
			} else {
				b.reply(ctx, msg, "⚠️ "+f.Message())
			}
		}
	case hasWhitelistFailure(result.Failed):
		b.react(ctx, msg, "🚫")
		b.reply(ctx, msg, whitelistReply(msg.From.ID))
	default:
		b.react(ctx, msg, "❌")
		b.reply(ctx, msg, failureReply(result.Failed, ""))
	}
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &tg.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolving file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		slog.Error("sending message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, msg *models.Message, text string) {
	_, err := b.api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		slog.Error("sending reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) react(ctx context.Context, msg *models.Message, emoji string) {
	_, err := b.api.SetMessageReaction(ctx, &tg.SetMessageReactionParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Reaction: []models.ReactionType{{
			Type:              models.ReactionTypeTypeEmoji,
			ReactionTypeEmoji: &models.ReactionTypeEmoji{Type: "emoji", Emoji: emoji},
		}},
	})
	if err != nil {
		slog.Debug("setting reaction failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func isGroupChat(msg *models.Message) bool {
	return msg.Chat.Type == "group" || msg.Chat.Type == "supergroup"
}
