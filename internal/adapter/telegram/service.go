package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"libraquant/internal/domain"
	"libraquant/internal/utils"
)

// DefaultAPIBase is the public Bot API endpoint
const DefaultAPIBase = "https://api.telegram.org"

// NotificationService relays signal alerts to a Telegram chat
type NotificationService struct {
	botToken   string
	chatID     string
	enabled    bool
	apiBase    string
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewNotificationService creates a notifier; it is a no-op without a token and chat
func NewNotificationService(botToken, chatID string) *NotificationService {
	return &NotificationService{
		botToken: botToken,
		chatID:   chatID,
		enabled:  botToken != "" && chatID != "",
		apiBase:  DefaultAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithAPIBase points the notifier at another Bot API host
func (s *NotificationService) WithAPIBase(base string) *NotificationService {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

// Enabled reports whether messages will be sent
func (s *NotificationService) Enabled() bool {
	return s.enabled
}

// NotifySignalChanges sends one message per new or re-statused signal
func (s *NotificationService) NotifySignalChanges(ctx context.Context, changes []domain.SignalChange) {
	if !s.enabled {
		return
	}
	for _, change := range changes {
		if err := s.sendMessage(ctx, FormatChange(change)); err != nil {
			log.Printf("[WARN] Telegram alert for %s failed: %v", change.Signal.ID, err)
		}
	}
}

// FormatChange renders a signal change as a Markdown message
func FormatChange(change domain.SignalChange) string {
	sig := change.Signal

	sideEmoji := "🟢"
	if sig.Action == domain.ActionSell {
		sideEmoji = "🔴"
	}

	var b strings.Builder
	if change.Kind == domain.ChangeNew {
		b.WriteString("🚀 *NEW SIGNAL*\n\n")
	} else {
		fmt.Fprintf(&b, "%s *SIGNAL UPDATE: %s*\n\n", statusEmoji(sig.Status), sig.Status.Label())
	}

	fmt.Fprintf(&b, "%s *%s %s %s %s*\n", sideEmoji, sig.Action, sig.Instrument, sig.Symbol, sig.Type)
	b.WriteString("━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📊 Entry: `%.2f`\n", sig.EntryPrice)
	fmt.Fprintf(&b, "🛑 Stop Loss: `%.2f`\n", sig.StopLoss)
	if sig.TrailingSL != nil {
		fmt.Fprintf(&b, "🔒 Trailing SL: `%.2f`\n", *sig.TrailingSL)
	}
	if len(sig.Targets) > 0 {
		targets := make([]string, len(sig.Targets))
		for i, t := range sig.Targets {
			targets[i] = fmt.Sprintf("%.2f", t)
		}
		fmt.Fprintf(&b, "🎯 Targets: `%s`\n", strings.Join(targets, " / "))
	}
	if sig.PnLPoints != nil {
		fmt.Fprintf(&b, "📈 Points: `%+.2f`\n", *sig.PnLPoints)
	}
	if sig.PnLRupees != nil {
		fmt.Fprintf(&b, "💰 P&L: `%s`\n", domain.FormatRupees(*sig.PnLRupees))
	}
	fmt.Fprintf(&b, "🕒 Time: `%s IST`", utils.GetMarketTime(sig.Timestamp).Format("2006-01-02 15:04"))
	if sig.Comment != "" {
		fmt.Fprintf(&b, "\n\n💡 %s", sig.Comment)
	}
	return b.String()
}

func statusEmoji(status domain.SignalStatus) string {
	switch status {
	case domain.StatusExited:
		return "✅"
	case domain.StatusStopped:
		return "❌"
	case domain.StatusPartial:
		return "🟡"
	default:
		return "⏳"
	}
}

// sendMessage sends a message to Telegram using the Bot API
func (s *NotificationService) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	payload := telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
