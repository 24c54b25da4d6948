package bot

import (
	"fmt"
	"strings"

	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/backend"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/fingerprint"
)

// User-facing texts, in Portuguese like the rest of the product.

func welcomeText(userID int64) string {
	return fmt.Sprintf(
		"👋 Bem-vindo ao Fluxo-Cash Bot!\n\n"+
			"🆔 Seu ID: %d\n"+
			"(Este é seu identificador no sistema)\n\n"+
			"📋 Como usar:\n"+
			"1. Envie uma foto ou PDF de um comprovante PIX\n"+
			"2. O bot extrairá os dados automaticamente\n"+
			"3. Seu crédito será atualizado em segundos\n\n"+
			"Use /help para mais informações.",
		userID,
	)
}

const helpText = "📚 Ajuda - Fluxo-Cash Bot\n\n" +
	"Comandos disponíveis:\n" +
	"/start - Iniciar\n" +
	"/help - Esta mensagem\n" +
	"/id - Ver seu ID\n" +
	"/pix <chave> [valor] - Gerar QR de cobrança\n\n" +
	"Para enviar comprovante:\n" +
	"Envie uma foto ou PDF do comprovante PIX\n\n" +
	"Dica: fotos claras funcionam melhor!"

func idText(userID int64, firstName string) string {
	return fmt.Sprintf(
		"🆔 Seu ID no Fluxo-Cash\n\nID Telegram: %d\nNome: %s\n\nEste é seu identificador único.",
		userID, firstName,
	)
}

func duplicateReply(verdict *fingerprint.Verdict) string {
	name := verdict.Match.UserName
	if name == "" {
		name = "Desconhecido"
	}
	return fmt.Sprintf(
		"🔁 Este comprovante já foi enviado por %s (ID: %d) anteriormente.",
		name, verdict.Match.UserID,
	)
}

func processedReply(valueReais float64) string {
	return fmt.Sprintf(
		"✅ Comprovante processado com sucesso!\n\n💵 Valor creditado: R$ %.2f",
		valueReais,
	)
}

func whitelistReply(userID int64) string {
	return fmt.Sprintf(
		"🚫 Cliente não encontrado na whitelist\n\n"+
			"ID do cliente: %d\n\n"+
			"Por favor, contate um administrador do sistema ou realize o cadastro do cliente.",
		userID,
	)
}

func failureReply(failed []backend.FailedFile, detail string) string {
	if len(failed) > 0 && failed[0].Message() != "" {
		return "❌ " + failed[0].Message()
	}
	if detail != "" {
		return "❌ " + detail
	}
	return "❌ Erro ao processar o comprovante."
}

// hasWhitelistFailure reports whether any backend rejection is a missing
// client registration.
func hasWhitelistFailure(failed []backend.FailedFile) bool {
	for _, f := range failed {
		if backend.IsClientNotFound(f.Message()) {
			return true
		}
	}
	return false
}

func chargeCaption(code string) string {
	return "💸 Copia e cola do Pix:\n" + code + "\n\nClique e segure para copiar!"
}

// displayName picks a usable name for a Telegram user the way the product
// always has: first name, then username, then a synthetic fallback.
func displayName(firstName, username string, userID int64) string {
	if name := strings.TrimSpace(firstName); name != "" && name != "Group" {
		return name
	}
	if username != "" {
		return username
	}
	return fmt.Sprintf("User_%d", userID)
}
