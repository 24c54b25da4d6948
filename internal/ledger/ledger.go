// Package ledger records accepted receipts in a spreadsheet for the
// operators' bookkeeping.
package ledger

import "context"

// Entry is one spreadsheet row per accepted receipt.
type Entry struct {
	Date        string
	UserID      int64
	UserName    string
	AmountCents int64
	SenderKey   string
	ReceiverKey string
	EndToEnd    string
	ContentHash string
}

// Ledger appends entries to the bookkeeping sheet. Append failures must not
// block receipt acceptance; callers log and move on.
type Ledger interface {
	Append(ctx context.Context, entry Entry) error
}
