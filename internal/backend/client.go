// Package backend forwards accepted receipts to the Fluxo Cash backend,
// which credits the client and keeps the authoritative balance.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UploadRequest carries one receipt file and its fingerprints.
type UploadRequest struct {
	Filename string
	Data     []byte
	UserID   int64
	UserName string
	SHA256   string
	OCRHash  string
	PHash    string
}

// ProcessedFile is one receipt the backend accepted and credited.
type ProcessedFile struct {
	Value float64 `json:"value"` // credited amount in reais
}

// FailedFile is one receipt the backend rejected.
type FailedFile struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Message returns whichever rejection text the backend filled in.
func (f FailedFile) Message() string {
	if f.Error != "" {
		return f.Error
	}
	return f.Reason
}

// UploadResult is the backend's verdict on an upload.
type UploadResult struct {
	Processed []ProcessedFile `json:"processed"`
	Failed    []FailedFile    `json:"failed"`
	Detail    string          `json:"detail"`
}

// Uploader is the forwarding contract consumed by the receipt service.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// Client implements Uploader over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			// PDF uploads plus backend-side extraction take a while.
			Timeout: 120 * time.Second,
		},
	}
}

// Upload posts the receipt as multipart form data to /telegram/upload.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("files", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, fmt.Errorf("writing file data: %w", err)
	}

	fields := map[string]string{
		"telegram_user_id":   strconv.FormatInt(req.UserID, 10),
		"telegram_user_name": req.UserName,
		"sha256":             req.SHA256,
		"ocr_hash":           req.OCRHash,
		"phash":              req.PHash,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/telegram/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("uploading to backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding backend response: %w", err)
	}
	return &result, nil
}

// IsClientNotFound reports whether a backend rejection means the Telegram
// user is not registered in the client whitelist.
func IsClientNotFound(message string) bool {
	if message == "" {
		return false
	}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "whitelist"):
		return true
	case strings.Contains(lower, "client") && strings.Contains(lower, "nao encontrado"):
		return true
	case strings.Contains(lower, "cliente") && strings.Contains(lower, "nao encontrado"):
		return true
	case strings.Contains(lower, "cliente") && strings.Contains(lower, "not found"):
		return true
	}
	return false
}
