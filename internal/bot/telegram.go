package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot connects the conversation engine to Telegram. The engine only sees
// opaque string sender ids; this adapter maps them to chat ids.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func New(token string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:    api,
		logger: logger,
	}, nil
}

// Send implements Sender. Failures are logged and swallowed: outbound
// delivery is fire-and-forget from the engine's perspective.
func (b *Bot) Send(senderID, text string) {
	chatID, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		b.logger.Error("Invalid sender id",
			zap.Error(err),
			zap.String("sender", senderID))
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// Run consumes updates until the channel closes, handling each message in
// its own goroutine. Per-sender ordering is preserved by the session store's
// overwrite-on-transition semantics.
func (b *Bot) Run(engine *Engine) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		text := update.Message.Text
		if text == "" {
			text = update.Message.Caption
		}
		if text == "" {
			continue
		}

		senderID := strconv.FormatInt(update.Message.Chat.ID, 10)
		go engine.Handle(context.Background(), senderID, text)
	}

	return nil
}
