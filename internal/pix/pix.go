// Package pix holds PIX domain helpers: key normalization, Brazilian
// currency parsing and field extraction from receipt text.
package pix

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Statement holds the payment fields recovered from a receipt's text.
// Fields that could not be found are left zero.
type Statement struct {
	AmountCents int64  `json:"amount_cents"`
	SenderKey   string `json:"sender_key"`
	ReceiverKey string `json:"receiver_key"`
	Beneficiary string `json:"beneficiary"`
	EndToEnd    string `json:"end_to_end"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// NormalizeKey folds a PIX key for comparison: lowercase, no "pix" prefix,
// separators removed. CNPJ keys in particular arrive formatted
// ("62.648.338/0001-01") or bare ("62648338000101") depending on the bank.
func NormalizeKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasPrefix(s, "pix:"):
		s = strings.TrimSpace(s[4:])
	case strings.HasPrefix(s, "pix "):
		s = strings.TrimSpace(s[4:])
	case s == "pix":
		s = ""
	}
	return keySeparators.ReplaceAllString(s, "")
}

var keySeparators = regexp.MustCompile(`[\s\-\./():\\]+`)

// ParseAmount converts a Brazilian-formatted currency string to integer
// cents. Brazilian receipts use '.' as thousands separator and ',' for
// cents: "49.500,00" is forty-nine thousand five hundred reais. A lone '.'
// followed by one or two digits is treated as a decimal point ("49.85"),
// otherwise as a thousands separator ("49.850").
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if parts := strings.Split(s, "."); !(len(parts) == 2 && len(parts[1]) <= 2) {
		s = strings.ReplaceAll(s, ".", "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return int64(math.Round(value * 100)), nil
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)valor\s+da\s+transa[cç][aã]o[:\s]*R?\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?is)(?:valor|quantia|total)[:\s]*R?\$?\s*([\d.,]+)`),
	regexp.MustCompile(`(?is)R\$\s*([\d.,]+)`),
}

// Key shapes, most specific first: random key (UUID), formatted CNPJ, bare
// CNPJ, CPF, email, phone.
const (
	uuidPattern  = `[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`
	cnpjPattern  = `\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`
	digitPattern = `\d{14}|\d{11}`
	emailPattern = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	phonePattern = `\+55\s*\d{2}\s*\d{4,5}[-\s]?\d{4}`

	senderLabels   = `(?:pagador|origem|de|remetente|quem\s+enviou)`
	receiverLabels = `(?:favorecido|destinat[aá]rio|recebedor|para|benefici[aá]rio|quem\s+recebeu)`
)

func keyPatterns(labels string) []*regexp.Regexp {
	shapes := []string{
		labels + `.*?(?:chave|pix)[:\s]*(` + uuidPattern + `)`,
		`(?:chave|pix)[:\s]*` + labels + `.*?(` + uuidPattern + `)`,
		labels + `.*?(` + uuidPattern + `)`,
		labels + `.*?(` + cnpjPattern + `)`,
		labels + `.*?(` + digitPattern + `)`,
		labels + `.*?(` + emailPattern + `)`,
		labels + `.*?(` + phonePattern + `)`,
	}
	patterns := make([]*regexp.Regexp, len(shapes))
	for i, shape := range shapes {
		patterns[i] = regexp.MustCompile(`(?is)` + shape)
	}
	return patterns
}

var (
	senderPatterns   = keyPatterns(senderLabels)
	receiverPatterns = keyPatterns(receiverLabels)

	beneficiaryPattern = regexp.MustCompile(`(?i)(?:favorecido|benefici[aá]rio|nome)[:\s]+([A-ZÀ-Ú][A-ZÀ-Ú\s]{2,50})`)
	endToEndPattern    = regexp.MustCompile(`(?i)(E\d{32})`)
	datePatterns       = []*regexp.Regexp{
		regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2})`),
		regexp.MustCompile(`(\d{2}[/-]\d{2}[/-]\d{4})`),
	}
)

// ParseStatement extracts PIX payment fields from receipt text. It never
// fails: fields that cannot be found stay zero and the caller decides what
// is enough.
func ParseStatement(text string) *Statement {
	stmt := &Statement{}

	for _, pattern := range amountPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if cents, err := ParseAmount(m[1]); err == nil {
				stmt.AmountCents = cents
				break
			}
		}
	}

	stmt.SenderKey = firstMatch(senderPatterns, text)
	stmt.ReceiverKey = firstMatch(receiverPatterns, text)

	if m := beneficiaryPattern.FindStringSubmatch(text); m != nil {
		stmt.Beneficiary = strings.TrimSpace(m[1])
	}
	if m := endToEndPattern.FindStringSubmatch(text); m != nil {
		stmt.EndToEnd = strings.ToUpper(m[1][:1]) + m[1][1:]
	}

	for _, pattern := range datePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			stmt.Date = normalizeDate(m[1])
			break
		}
	}

	return stmt
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// normalizeDate converts DD/MM/YYYY and YYYY/MM/DD forms to YYYY-MM-DD.
func normalizeDate(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return s
	}
	if len(parts[0]) == 4 {
		return s
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
