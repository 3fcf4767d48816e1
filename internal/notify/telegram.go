package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// TelegramNotifier handles sending notifications to multiple users
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken string, chatIDs []int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
	}, nil
}

// SendNotification sends a message to all configured chat IDs
func (tn *TelegramNotifier) SendNotification(message string) {
	if tn == nil || tn.bot == nil {
		return
	}

	for _, chatID := range tn.chatIDs {
		msg := tgbotapi.NewMessage(chatID, message)
		if _, err := tn.bot.Send(msg); err != nil {
			log.Errorf("unable to send telegram notification to %d: %v", chatID, err)
		}
	}
}

// NotifyReconciliation raises the highest-severity ops alert: a payment was
// verified but could not be durably recorded and needs manual reconciliation.
func (tn *TelegramNotifier) NotifyReconciliation(userID, gameID string) {
	tn.SendNotification(fmt.Sprintf(
		"RECONCILIATION REQUIRED: verified payment not recorded (user %s, game %s)", userID, gameID))
}
