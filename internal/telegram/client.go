// Package telegram mirrors complaint events to a Telegram chat.
//
// This package handles:
//   - Announcing newly received reports
//   - Forwarding workflow transitions and error notices
//   - Posting the status summary chart
//   - Critical alerts when polling keeps failing
//
// A nil *Client is valid: every method logs and returns without error, so
// callers never need to check whether Telegram is configured.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"pengaduan/internal/model"
	"pengaduan/internal/notify"
)

// DefaultAPIURL is the Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// Client represents a Telegram bot client.
//
// Fields:
//   - BotToken: Telegram bot API token
//   - ChatID: Target chat ID for notifications
//   - DebugMode: If true, messages are logged instead of sent
//   - APIURL: Bot API root (overridable for tests)
type Client struct {
	BotToken  string
	ChatID    string
	DebugMode bool
	APIURL    string

	httpClient *http.Client
}

// Message represents a Telegram message for sending.
type Message struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// apiResponse is the envelope of every Bot API answer.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// NewClient creates a Telegram client.
//
// Returns nil (Telegram disabled) when token or chatID is empty.
func NewClient(token, chatID string, debug bool) *Client {
	if token == "" || chatID == "" {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set. Telegram notifications disabled.")
		if token == "" {
			log.Println("   → Missing: TELEGRAM_BOT_TOKEN")
		}
		if chatID == "" {
			log.Println("   → Missing: TELEGRAM_CHAT_ID")
		}
		return nil
	}

	log.Println("✓ Telegram configured successfully")
	if debug {
		log.Println("🐛 DEBUG MODE ENABLED - Telegram calls will be simulated")
	}

	return &Client{
		BotToken:   token,
		ChatID:     chatID,
		DebugMode:  debug,
		APIURL:     DefaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) endpoint(method string) string {
	base := c.APIURL
	if base == "" {
		base = DefaultAPIURL
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), c.BotToken, method)
}

// doRequest posts a request body to a Bot API method and checks the "ok"
// flag of the answer.
func (c *Client) doRequest(ctx context.Context, method, contentType string, body io.Reader) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	hc := c.httpClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("Telegram API error: %s", result.Description)
	}
	return &result, nil
}

// SendMessage sends an HTML message and returns its message id.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping message send")
		return "", nil
	}
	if c.DebugMode {
		log.Printf("   🐛 [telegram] %s", text)
		return "", nil
	}

	payload, err := json.Marshal(Message{
		ChatID:                c.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := c.doRequest(ctx, "sendMessage", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to send Telegram message: %w", err)
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(result.Result, &sent); err != nil || sent.MessageID == 0 {
		return "", nil
	}
	return fmt.Sprint(sent.MessageID), nil
}

// SendReport announces a newly received report and returns the message id.
//
// Message format:
//
//	📋 Pengaduan baru: <id>
//	👤 <reporter> (<phone>)
//	📅 <created>
//	💬 <message>
//	📍 <desa>, <kecamatan>, <kabupaten>
func (c *Client) SendReport(ctx context.Context, r *model.Report) (string, error) {
	if c == nil {
		return "", nil
	}

	var place []string
	for _, p := range []string{r.Location.Desa, r.Location.Kecamatan, r.Location.Kabupaten} {
		if p != "" {
			place = append(place, html.EscapeString(p))
		}
	}

	text := fmt.Sprintf(
		"📋 <b>Pengaduan baru:</b> %s\n\n"+
			"👤 %s (%s)\n"+
			"📅 %s\n\n"+
			"💬 %s\n\n"+
			"📍 %s",
		html.EscapeString(r.ID),
		html.EscapeString(r.User.Name),
		html.EscapeString(r.User.Phone),
		r.CreatedAt.Format("2006-01-02 15:04"),
		html.EscapeString(r.Message),
		strings.Join(place, ", "),
	)

	return c.SendMessage(ctx, text)
}

// SendTransition reports a persisted status change.
func (c *Client) SendTransition(ctx context.Context, reportID string, from, to model.Status, actor string) error {
	if c == nil {
		return nil
	}

	icon := "➡️"
	switch to {
	case model.StatusDitutup:
		icon = "⛔"
	case model.StatusSelesaiPengaduan, model.StatusSelesaiPenanganan:
		icon = "✅"
	}

	text := fmt.Sprintf(
		"%s <b>Laporan %s</b>\n%s → <b>%s</b>\n👮 %s",
		icon,
		html.EscapeString(reportID),
		html.EscapeString(string(from)),
		html.EscapeString(string(to)),
		html.EscapeString(actor),
	)
	_, err := c.SendMessage(ctx, text)
	return err
}

// SendPhoto uploads a PNG (the summary chart) with a caption.
func (c *Client) SendPhoto(ctx context.Context, png []byte, caption string) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping photo send")
		return nil
	}
	if c.DebugMode {
		log.Printf("   🐛 [telegram] photo (%d bytes): %s", len(png), caption)
		return nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", c.ChatID); err != nil {
		return err
	}
	if err := w.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", "summary.png")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	if _, err := c.doRequest(ctx, "sendPhoto", w.FormDataContentType(), &body); err != nil {
		return fmt.Errorf("failed to send Telegram photo: %w", err)
	}
	log.Println("   ✓ Summary chart sent to Telegram")
	return nil
}

// SendCriticalAlert sends a critical failure alert.
//
// Alert format:
//
//	🚨 CRITICAL ALERT - PENGADUAN SERVICE
//	Error Type: Poll Failure
//	Error Message: [details]
//	Retry Attempts: 3
//	Timestamp: 2026-01-15 10:30:00
func (c *Client) SendCriticalAlert(ctx context.Context, errorType, errorMsg string, retryCount int) error {
	if c == nil {
		log.Println("   ⚠️  Telegram not configured, skipping critical alert")
		return nil
	}

	log.Println("   🚨 Sending critical alert to Telegram...")
	text := fmt.Sprintf(
		"🚨 <b>CRITICAL ALERT - PENGADUAN SERVICE</b>\n\n"+
			"<b>Error Type:</b> %s\n"+
			"<b>Error Message:</b> %s\n"+
			"<b>Retry Attempts:</b> %d\n"+
			"<b>Timestamp:</b> %s\n\n"+
			"⚠️ <b>Action Required:</b> Please check the service immediately.",
		html.EscapeString(errorType),
		html.EscapeString(errorMsg),
		retryCount,
		time.Now().Format("2006-01-02 15:04:05"),
	)

	if _, err := c.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("failed to send Telegram alert: %w", err)
	}
	return nil
}

// Forward implements notify.Forwarder: error notices are mirrored to the
// chat, success notices are not.
func (c *Client) Forward(n notify.Notice) {
	if c == nil || n.Kind != notify.KindError {
		return
	}

	// Sent in the background so a slow chat never delays the workflow.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.SendMessage(ctx, "❌ "+html.EscapeString(n.Message)); err != nil {
			log.Printf("   ⚠️  Failed to forward notice to Telegram: %v", err)
		}
	}()
}
