package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"khadamat/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// LogSender records outgoing messages in the log. Used when no
// messaging channel is configured.
type LogSender struct {
	logger *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendText(ctx context.Context, recipient, channel, text string) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("channel", channel).
		Str("text", text).
		Msg("outgoing message")
	return nil
}

// TelegramRelaySender forwards provider hand-off messages to operator
// chats with a ready-to-tap wa.me link, so the operator forwards them
// from their own number.
type TelegramRelaySender struct {
	bot     domain.TelegramSender
	chatIDs []int64
}

func NewTelegramRelaySender(bot domain.TelegramSender, chatIDs []int64) *TelegramRelaySender {
	return &TelegramRelaySender{bot: bot, chatIDs: chatIDs}
}

func (s *TelegramRelaySender) SendText(ctx context.Context, recipient, channel, text string) error {
	body := fmt.Sprintf("📨 رسالة إلى المزود %s\n%s", recipient, text)
	if channel == "whatsapp" {
		body += "\n\n" + WhatsAppLink(recipient, text)
	}

	var firstErr error
	for _, chatID := range s.chatIDs {
		msg := tgbotapi.NewMessage(chatID, body)
		if _, err := s.bot.Send(msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("telegram relay to %d: %w", chatID, err)
		}
	}
	return firstErr
}

// WhatsAppLink builds a wa.me deep link with the message prefilled.
// The recipient number is normalized to international digits.
func WhatsAppLink(recipient, text string) string {
	digits := strings.NewReplacer("+", "", " ", "", "-", "").Replace(recipient)
	if strings.HasPrefix(digits, "05") {
		digits = "966" + digits[1:]
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}
