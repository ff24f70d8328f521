package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// PaymentSuccessNotification contains payment data for the admin alert.
type PaymentSuccessNotification struct {
	OrderID   string
	Reference string
	Amount    float64
	Currency  string
}

// PaymentNotifier receives a single notification per completed payment.
type PaymentNotifier interface {
	NotifyPaymentSuccess(n PaymentSuccessNotification) error
}

// TelegramService sends notifications to the admin Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// NotifyPaymentSuccess alerts the admin chat about a completed payment.
func (s *TelegramService) NotifyPaymentSuccess(n PaymentSuccessNotification) error {
	text := fmt.Sprintf(
		"✅ <b>Payment received</b>\n\nOrder: <code>%s</code>\nReference: <code>%s</code>\nAmount: %.2f %s",
		n.OrderID, n.Reference, n.Amount, n.Currency,
	)
	return s.SendToAdmin(text)
}
