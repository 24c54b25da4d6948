package receipt

import "time"

// Receipt represents an accepted PIX receipt with its extracted payment data.
type Receipt struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	AmountCents int64     `json:"amount_cents"`
	SenderKey   string    `json:"sender_key"`
	ReceiverKey string    `json:"receiver_key"`
	Beneficiary string    `json:"beneficiary"`
	EndToEnd    string    `json:"end_to_end"`
	Date        string    `json:"date"` // YYYY-MM-DD, from the receipt itself
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
