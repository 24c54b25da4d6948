package pix

import (
	"fmt"

	gopix "github.com/fonini/go-pix/pix"
)

// Charge is a generated PIX charge: the copy-and-paste BR Code plus its QR
// code rendered as PNG.
type Charge struct {
	Code  string
	QRPNG []byte
}

// NewCharge builds a static PIX charge for the configured receiving key.
// amountCents of zero produces an open-value charge.
func NewCharge(key, merchantName, merchantCity string, amountCents int64) (*Charge, error) {
	opts := gopix.Options{
		Key:  key,
		Name: merchantName,
		City: merchantCity,
	}
	if amountCents > 0 {
		opts.Amount = float64(amountCents) / 100
	}

	code, err := gopix.Pix(opts)
	if err != nil {
		return nil, fmt.Errorf("generating PIX code: %w", err)
	}

	qr, err := gopix.QRCode(gopix.QRCodeOptions{Size: 256, Content: code})
	if err != nil {
		return nil, fmt.Errorf("generating QR code: %w", err)
	}

	return &Charge{Code: code, QRPNG: qr}, nil
}
