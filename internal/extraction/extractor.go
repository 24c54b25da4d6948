package extraction

import "context"

// Extractor recovers the text of a receipt image or PDF.
type Extractor interface {
	// Extract returns the text found in the document. An empty string with a
	// nil error means the document genuinely contains no recoverable text.
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
	// Close releases any resources held by the extractor.
	Close() error
}

// ocrPrompt is the shared prompt used by all vision-model providers. PIX
// receipts carry the fields that matter (value, keys, end-to-end ID) as plain
// text, so the model is asked for a faithful transcription, nothing more.
const ocrPrompt = `You are reading a Brazilian PIX payment receipt (comprovante). Transcribe ALL text visible in the image, preserving the original wording, numbers and punctuation exactly as printed.

Important:
- Include every field: valor, data, pagador, favorecido, chave PIX, ID da transação (E2E), instituição.
- Do not translate, summarize or interpret anything.
- Do not add any commentary before or after the transcription.
- Return only plain text, no markdown.`
