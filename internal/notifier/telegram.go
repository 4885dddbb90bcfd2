package notifier

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

type TelegramNotifier struct {
	Token   string
	ChatID  string
	Retries int
	Delay   time.Duration
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{Token: token, ChatID: chatID, Retries: 3, Delay: 5 * time.Second}
}

func (t *TelegramNotifier) Send(message string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.Token)
	resp, err := http.PostForm(apiURL, url.Values{
		"chat_id": {t.ChatID},
		"text":    {message},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}

func (t *TelegramNotifier) SendWithRetry(message string) error {
	var err error
	for i := 1; i <= t.Retries; i++ {
		if err = t.Send(message); err == nil {
			return nil
		}
		log.Printf("Notifier | Telegram send attempt %d/%d failed: %v", i, t.Retries, err)
		time.Sleep(t.Delay)
	}
	return err
}
