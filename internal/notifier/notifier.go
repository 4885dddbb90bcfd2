// Package notifier
package notifier

// Notifier interface for sending notifications (e.g., Telegram).
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Nop ignores all messages. Used when no Telegram token is configured.
type Nop struct{}

func (Nop) Send(_ string) error          { return nil }
func (Nop) SendWithRetry(_ string) error { return nil }
